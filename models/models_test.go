package models

import (
	"math"
	"testing"
	"time"
)

func TestRawRowValueTreatsNaNAsAbsent(t *testing.T) {
	r := RawRow{Open: 1, High: 2, Low: 0, Close: math.NaN(), Volume: 5, OpenInterest: math.NaN()}

	if v, ok := r.Value(FieldLow); !ok || v != 0 {
		t.Fatalf("traded zero must be present, got %v %v", v, ok)
	}
	if _, ok := r.Value(FieldClose); ok {
		t.Fatalf("NaN close must be absent")
	}
	if _, ok := r.Value(FieldOpenInterest); ok {
		t.Fatalf("NaN open interest must be absent")
	}
	if v, ok := r.Value(FieldVolume); !ok || v != 5 {
		t.Fatalf("unexpected volume %v %v", v, ok)
	}
}

func TestWideTableNameAndDensity(t *testing.T) {
	tbl := &WideTable{
		Symbol:    "BAJAJ-AUTO",
		TradeDate: time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
		Index:     []time.Time{{}, {}},
	}
	c := NewNumericColumn(ColumnKey{Name: "FUT_I_Close"}, 2)
	c.Set(1, 2480)
	tbl.Columns = append(tbl.Columns, c)

	if got := tbl.Name(); got != "BAJAJ-AUTO_2025-10-31" {
		t.Fatalf("unexpected name %q", got)
	}
	nonNull, total := tbl.Density()
	if nonNull != 1 || total != 2 {
		t.Fatalf("density = %d/%d, want 1/2", nonNull, total)
	}
	if _, ok := c.Float(0); ok {
		t.Fatalf("unwritten cell must be absent")
	}
	if col, ok := tbl.Column("FUT_I_Close"); !ok || col != c {
		t.Fatalf("column lookup failed")
	}
}
