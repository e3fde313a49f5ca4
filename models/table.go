package models

import (
	"fmt"
	"time"
)

// Metadata column names. They always lead the finalized column order.
const (
	ColumnFileDate = "FileDate"
	ColumnDate     = "Date"
	ColumnTime     = "Time"
)

// MetadataColumns lists the metadata columns in their fixed order.
var MetadataColumns = []string{ColumnFileDate, ColumnDate, ColumnTime}

// ColumnKey identifies one output column together with the structured key
// used to order it. Option columns carry their strike and type so ordering
// never has to re-parse Name.
type ColumnKey struct {
	Name   string
	Prefix string
	Field  Field

	Meta       bool
	Option     bool
	Strike     int64
	OptionType OptionType
}

// ColumnType is the physical type a column is written with.
type ColumnType int

const (
	TypeFloat64 ColumnType = iota
	TypeFloat32
	TypeInt64
	TypeInt32
	TypeTimestamp
	TypeString
)

func (t ColumnType) String() string {
	switch t {
	case TypeFloat64:
		return "float64"
	case TypeFloat32:
		return "float32"
	case TypeInt64:
		return "int64"
	case TypeInt32:
		return "int32"
	case TypeTimestamp:
		return "timestamp"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// Numeric reports whether values of this type live in Column.Values.
func (t ColumnType) Numeric() bool {
	switch t {
	case TypeFloat64, TypeFloat32, TypeInt64, TypeInt32:
		return true
	}
	return false
}

// Column is one column of a WideTable. Numeric columns use Values/Valid,
// timestamp columns use Times and string columns use Text. A cell with
// Valid[i] == false is absent: nothing traded there, which is not zero.
type Column struct {
	Key  ColumnKey
	Type ColumnType

	Values []float64
	Valid  []bool
	Times  []time.Time
	Text   []string
}

// NewNumericColumn allocates an all-absent float64 column of n rows.
func NewNumericColumn(key ColumnKey, n int) *Column {
	return &Column{
		Key:    key,
		Type:   TypeFloat64,
		Values: make([]float64, n),
		Valid:  make([]bool, n),
	}
}

// Name is a shorthand for Key.Name.
func (c *Column) Name() string { return c.Key.Name }

// Len returns the number of rows held by the column.
func (c *Column) Len() int {
	switch c.Type {
	case TypeTimestamp:
		return len(c.Times)
	case TypeString:
		return len(c.Text)
	default:
		return len(c.Values)
	}
}

// Float returns the numeric value at row i and whether it is present.
func (c *Column) Float(i int) (float64, bool) {
	if !c.Type.Numeric() || i < 0 || i >= len(c.Values) || !c.Valid[i] {
		return 0, false
	}
	return c.Values[i], true
}

// Set writes a present value at row i.
func (c *Column) Set(i int, v float64) {
	c.Values[i] = v
	c.Valid[i] = true
}

// NonNull counts the present cells of the column.
func (c *Column) NonNull() int {
	if !c.Type.Numeric() {
		return c.Len()
	}
	n := 0
	for _, ok := range c.Valid {
		if ok {
			n++
		}
	}
	return n
}

// WideTable is the per-underlying, per-day pivot result.
type WideTable struct {
	Symbol    string
	TradeDate time.Time
	Index     []time.Time
	Columns   []*Column
}

// Name is the deterministic artefact name {symbol}_{YYYY-MM-DD}.
func (t *WideTable) Name() string {
	return fmt.Sprintf("%s_%s", t.Symbol, t.TradeDate.Format("2006-01-02"))
}

// NumRows returns the number of timestamps on the row axis.
func (t *WideTable) NumRows() int { return len(t.Index) }

// Column finds a column by name.
func (t *WideTable) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Key.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ColumnNames returns the column names in table order.
func (t *WideTable) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Key.Name
	}
	return names
}

// Density returns the number of present cells and the total cell count.
func (t *WideTable) Density() (nonNull, total int) {
	for _, c := range t.Columns {
		nonNull += c.NonNull()
	}
	return nonNull, len(t.Index) * len(t.Columns)
}
