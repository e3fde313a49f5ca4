package processor

import (
	"math"
	"testing"
	"time"

	"nfowide/models"
)

var nan = math.NaN()

var tradeDate = time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)

// bar builds a row with only Close set.
func bar(ticker, clock string, close float64) models.RawRow {
	return models.RawRow{
		Ticker: ticker, Date: "31/10/2025", Time: clock,
		Open: nan, High: nan, Low: nan, Close: close, Volume: nan, OpenInterest: nan,
	}
}

// fullBar builds a row with all six fields set from base.
func fullBar(ticker, clock string, base float64) models.RawRow {
	return models.RawRow{
		Ticker: ticker, Date: "31/10/2025", Time: clock,
		Open: base, High: base + 1, Low: base - 1, Close: base + 0.5, Volume: 100, OpenInterest: 1000,
	}
}

func at(clock string) time.Time {
	ts, _ := ParseTimestamp("31/10/2025", clock)
	return ts
}

func mustColumn(t *testing.T, table *models.WideTable, name string) *models.Column {
	t.Helper()
	c, ok := table.Column(name)
	if !ok {
		t.Fatalf("column %s missing; have %v", name, table.ColumnNames())
	}
	return c
}
