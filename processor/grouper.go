package processor

import (
	"nfowide/internal/symbols"
	"nfowide/models"
)

// ContractRows is one contract of the target symbol together with the
// master-file rows that carry its bars.
type ContractRows struct {
	Contract models.Contract
	Rows     []int
}

// ContractParser is satisfied by *symbols.Parser.
type ContractParser interface {
	Parse(ticker string) models.Contract
}

// GroupOptions narrows which contracts Group keeps.
type GroupOptions struct {
	// OptionBuckets, when non-empty, keeps only options whose expiry ranks
	// into one of these buckets. Futures are never filtered.
	OptionBuckets []models.Bucket
}

// Group collects the futures and options of target. Each candidate ticker
// is parsed once; rows of contracts that resolve to another symbol or do
// not resolve at all are dropped. The result is ordered by ticker and an
// empty result means the symbol has no data.
func Group(index *TickerIndex, parser ContractParser, target string) []ContractRows {
	return GroupWith(index, parser, target, GroupOptions{})
}

// GroupWith is Group with an option expiry filter.
func GroupWith(index *TickerIndex, parser ContractParser, target string, opts GroupOptions) []ContractRows {
	var groups []ContractRows
	for _, ticker := range index.Tickers() {
		if !symbols.IsCandidate(ticker, target) {
			continue
		}
		c := parser.Parse(ticker)
		if !c.Resolved() || c.Symbol != target {
			continue
		}
		if c.Kind == models.KindOption && !bucketAllowed(c.Bucket, opts.OptionBuckets) {
			continue
		}
		groups = append(groups, ContractRows{Contract: c, Rows: index.Rows(ticker)})
	}
	return groups
}

func bucketAllowed(b models.Bucket, allowed []models.Bucket) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == b {
			return true
		}
	}
	return false
}

// countKinds returns how many futures and options groups holds.
func countKinds(groups []ContractRows) (futures, options int) {
	for _, g := range groups {
		switch g.Contract.Kind {
		case models.KindFuture:
			futures++
		case models.KindOption:
			options++
		}
	}
	return futures, options
}
