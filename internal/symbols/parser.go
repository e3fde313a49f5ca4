package symbols

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"nfowide/models"
)

// ExchangeSuffix is stripped from tickers before matching.
const ExchangeSuffix = ".NFO"

// Symbols are matched non-greedily so the fixed-shape tail binds first:
// BAJAJ-AUTO-I is BAJAJ-AUTO + I, not BAJAJ + AUTO-I.
var (
	futuresPattern      = regexp.MustCompile(`^([A-Z0-9&-]+?)-(I|II|III)$`)
	optionPattern       = regexp.MustCompile(`^([A-Z0-9&-]+?)(\d{2}[A-Z]{3}\d{2})(\d+)(CE|PE)$`)
	datedFuturesPattern = regexp.MustCompile(`^([A-Z0-9&-]+?)(\d{2}[A-Z]{3}\d{2})FUT$`)
)

// Parser turns NFO ticker strings into contract descriptors. The reference
// date is the trade date used to rank expiries into roll buckets; a zero
// reference leaves option buckets empty and puts dated futures in FUT_I.
type Parser struct {
	reference time.Time
}

// NewParser returns a parser ranking expiries against reference.
func NewParser(reference time.Time) *Parser {
	return &Parser{reference: reference}
}

var defaultParser = &Parser{}

// Parse parses ticker with a zero reference date.
func Parse(ticker string) models.Contract {
	return defaultParser.Parse(ticker)
}

// Parse resolves ticker into a future or option descriptor. Tickers that
// match no modelled shape come back with Kind == KindUnresolved; that is an
// expected outcome for cash tickers and malformed rows, not an error.
func (p *Parser) Parse(ticker string) models.Contract {
	raw := strings.TrimSuffix(ticker, ExchangeSuffix)

	if m := futuresPattern.FindStringSubmatch(raw); m != nil {
		return models.Contract{
			Ticker: ticker,
			Symbol: m[1],
			Kind:   models.KindFuture,
			Bucket: models.Bucket("FUT_" + m[2]),
		}
	}

	if m := optionPattern.FindStringSubmatch(raw); m != nil {
		strike, err := strconv.ParseInt(m[3], 10, 64)
		if err != nil {
			return models.Contract{Ticker: ticker}
		}
		c := models.Contract{
			Ticker:     ticker,
			Symbol:     m[1],
			Kind:       models.KindOption,
			Expiry:     m[2],
			Strike:     strike,
			OptionType: models.OptionType(m[4]),
		}
		if !p.reference.IsZero() {
			c.Bucket = Classify(c.Expiry, p.reference)
		}
		return c
	}

	if m := datedFuturesPattern.FindStringSubmatch(raw); m != nil {
		return models.Contract{
			Ticker: ticker,
			Symbol: m[1],
			Kind:   models.KindFuture,
			Expiry: m[2],
			Bucket: Classify(m[2], p.reference),
		}
	}

	return models.Contract{Ticker: ticker}
}

// IsCandidate reports whether ticker may belong to symbol: it must start
// with symbol followed immediately by a digit (options, dated futures) or a
// hyphen (rolling futures). Symbols are not prefix-free, so TATA alone must
// not pull in TATASTEEL or TATAPOWER.
func IsCandidate(ticker, symbol string) bool {
	if symbol == "" || len(ticker) <= len(symbol) || !strings.HasPrefix(ticker, symbol) {
		return false
	}
	next := ticker[len(symbol)]
	return next == '-' || (next >= '0' && next <= '9')
}
