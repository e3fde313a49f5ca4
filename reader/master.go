package reader

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"nfowide/logger"
	"nfowide/models"
)

func init() {
	// "Open Interest", "OpenInterest" and "open_interest" all name the same
	// column.
	gocsv.SetHeaderNormalizer(normalizeHeader)
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "", "_", "").Replace(h)
}

// csvFloat decodes an empty or malformed cell as NaN.
type csvFloat struct {
	v   float64
	set bool
}

func (f *csvFloat) UnmarshalCSV(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	f.v, f.set = v, true
	return nil
}

func (f csvFloat) value() float64 {
	if !f.set {
		return math.NaN()
	}
	return f.v
}

type masterRecord struct {
	Ticker       string   `csv:"ticker"`
	Date         string   `csv:"date"`
	Time         string   `csv:"time"`
	Open         csvFloat `csv:"open"`
	High         csvFloat `csv:"high"`
	Low          csvFloat `csv:"low"`
	Close        csvFloat `csv:"close"`
	Volume       csvFloat `csv:"volume"`
	OpenInterest csvFloat `csv:"openinterest"`
}

func (r masterRecord) toRow() models.RawRow {
	return models.RawRow{
		Ticker:       strings.TrimSpace(r.Ticker),
		Date:         strings.TrimSpace(r.Date),
		Time:         strings.TrimSpace(r.Time),
		Open:         r.Open.value(),
		High:         r.High.value(),
		Low:          r.Low.value(),
		Close:        r.Close.value(),
		Volume:       r.Volume.value(),
		OpenInterest: r.OpenInterest.value(),
	}
}

// LoadMaster reads the whole master file at path.
func LoadMaster(ctx context.Context, path string) ([]models.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open master file: %w", err)
	}
	defer f.Close()

	start := time.Now()
	rows, err := ReadMaster(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read master file %s: %w", path, err)
	}

	log := logger.GetLogger().WithComponent("master_reader")
	logger.LogPerformanceEntry(log, "master_reader", "load_master", time.Since(start), logger.Fields{
		"path": path,
		"rows": len(rows),
	})
	logger.LogDataFlowEntry(log, path, "pivot", len(rows), "raw_rows")
	return rows, nil
}

// ReadMaster decodes long-format bars from r. Rows without a ticker are
// skipped. Reading stops early when ctx is cancelled.
func ReadMaster(ctx context.Context, r io.Reader) ([]models.RawRow, error) {
	var rows []models.RawRow
	var skipped int
	err := gocsv.UnmarshalToCallback(r, func(rec masterRecord) {
		if ctx.Err() != nil {
			return
		}
		if strings.TrimSpace(rec.Ticker) == "" {
			skipped++
			return
		}
		rows = append(rows, rec.toRow())
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.GetLogger().WithComponent("master_reader").
			WithFields(logger.Fields{"skipped": skipped}).Warn("skipped rows without ticker")
	}
	return rows, nil
}

// TradeDate parses the Date of the first row, which is how the day of a
// master file is known when it is not configured.
func TradeDate(rows []models.RawRow) (time.Time, error) {
	if len(rows) == 0 {
		return time.Time{}, fmt.Errorf("master file has no rows")
	}
	d, err := time.ParseInLocation(models.DateLayout, rows[0].Date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse trade date %q: %w", rows[0].Date, err)
	}
	return d, nil
}
