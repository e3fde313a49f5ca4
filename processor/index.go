package processor

import (
	"sort"

	"nfowide/models"
)

// TickerIndex maps every distinct ticker of the master file to the row
// positions it occupies. It is built once per run and only read afterwards,
// so workers share one instance without locking.
type TickerIndex struct {
	tickers []string
	rows    map[string][]int
}

// NewTickerIndex indexes rows by ticker. Tickers are kept sorted.
func NewTickerIndex(rows []models.RawRow) *TickerIndex {
	idx := &TickerIndex{rows: make(map[string][]int)}
	for i := range rows {
		t := rows[i].Ticker
		if _, ok := idx.rows[t]; !ok {
			idx.tickers = append(idx.tickers, t)
		}
		idx.rows[t] = append(idx.rows[t], i)
	}
	sort.Strings(idx.tickers)
	return idx
}

// Tickers returns the distinct tickers in ascending order.
func (x *TickerIndex) Tickers() []string { return x.tickers }

// Rows returns the row positions of ticker in file order.
func (x *TickerIndex) Rows(ticker string) []int { return x.rows[ticker] }

// Len is the number of distinct tickers.
func (x *TickerIndex) Len() int { return len(x.tickers) }
