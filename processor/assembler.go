package processor

import (
	"fmt"
	"time"

	"nfowide/models"
)

// DuplicatePolicy decides which value wins when one column receives two
// values for the same timestamp.
type DuplicatePolicy string

const (
	KeepLast  DuplicatePolicy = "last"
	KeepFirst DuplicatePolicy = "first"
)

// ParseDuplicatePolicy maps a config value onto a policy. Empty means last.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", KeepLast:
		return KeepLast, nil
	case KeepFirst:
		return KeepFirst, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// AssembleStats describes what happened while filling one wide table.
type AssembleStats struct {
	// CellsWritten counts present values stored, overwrites included.
	CellsWritten int
	// Duplicates counts repeated (contract, timestamp) rows.
	Duplicates int
	// Collisions counts cells written by two different contracts that share
	// a prefix, e.g. the same strike and type in two expiries.
	Collisions int
	// DroppedRows counts rows with a valid timestamp that is not on the
	// axis. Unparseable timestamps are counted by Axis.Dropped instead.
	DroppedRows int
}

// Assemble lays out the wide table of symbol: one row per axis timestamp
// and one column per synthesized key. Cells nobody writes stay absent.
func Assemble(symbol string, tradeDate time.Time, axis Axis, groups []ContractRows, rows []models.RawRow, policy DuplicatePolicy) (*models.WideTable, AssembleStats) {
	var stats AssembleStats
	n := axis.Len()

	keys := Synthesize(groups)
	table := &models.WideTable{
		Symbol:    symbol,
		TradeDate: tradeDate,
		Index:     append([]time.Time(nil), axis.Times...),
		Columns:   make([]*models.Column, 0, len(keys)),
	}
	byName := make(map[string]*models.Column, len(keys))
	for _, key := range keys {
		var col *models.Column
		if key.Meta {
			col = metadataColumn(key, tradeDate, axis.Times)
		} else {
			col = models.NewNumericColumn(key, n)
		}
		table.Columns = append(table.Columns, col)
		byName[key.Name] = col
	}

	// owner remembers which ticker first wrote a value into a (prefix, row)
	// slot so that repeated rows and prefix collisions can be told apart.
	// Rows carrying no value never claim a slot.
	owner := make(map[cellRef]string)

	for _, g := range groups {
		prefix := PrefixFor(g.Contract)
		for _, r := range g.Rows {
			row := &rows[r]
			// Unparseable timestamps are already counted in Axis.Dropped.
			ts, ok := ParseTimestamp(row.Date, row.Time)
			if !ok {
				continue
			}
			pos, ok := axis.Position(ts)
			if !ok {
				stats.DroppedRows++
				continue
			}
			if !hasValue(row) {
				continue
			}

			ref := cellRef{prefix: prefix, row: pos}
			if prev, seen := owner[ref]; seen {
				if prev == g.Contract.Ticker {
					stats.Duplicates++
				} else {
					stats.Collisions++
				}
			} else {
				owner[ref] = g.Contract.Ticker
			}

			// The policy applies per cell: under KeepFirst a later row still
			// fills fields the earlier rows left absent.
			for _, f := range models.Fields {
				v, present := row.Value(f)
				if !present {
					continue
				}
				col := byName[ColumnName(prefix, f)]
				if policy == KeepFirst && col.Valid[pos] {
					continue
				}
				col.Set(pos, v)
				stats.CellsWritten++
			}
		}
	}

	return table, stats
}

func hasValue(row *models.RawRow) bool {
	for _, f := range models.Fields {
		if _, ok := row.Value(f); ok {
			return true
		}
	}
	return false
}

type cellRef struct {
	prefix string
	row    int
}

func metadataColumn(key models.ColumnKey, tradeDate time.Time, index []time.Time) *models.Column {
	switch key.Name {
	case models.ColumnTime:
		text := make([]string, len(index))
		for i, ts := range index {
			text[i] = ts.Format(models.TimeLayout)
		}
		return &models.Column{Key: key, Type: models.TypeString, Text: text}
	default:
		times := make([]time.Time, len(index))
		for i := range times {
			times[i] = tradeDate
		}
		return &models.Column{Key: key, Type: models.TypeTimestamp, Times: times}
	}
}
