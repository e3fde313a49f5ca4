package models

import "math"

// RawRow is one long-format bar from the exchange master file. Numeric
// fields hold NaN when the source cell was empty.
type RawRow struct {
	Ticker       string
	Date         string // dd/mm/yyyy
	Time         string // HH:MM:SS
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	OpenInterest float64
}

// Field names one of the six numeric bar fields that become data columns.
type Field string

const (
	FieldOpen         Field = "Open"
	FieldHigh         Field = "High"
	FieldLow          Field = "Low"
	FieldClose        Field = "Close"
	FieldOpenInterest Field = "Open_Interest"
	FieldVolume       Field = "Volume"
)

// Fields lists the data fields in the order they are written.
var Fields = []Field{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldOpenInterest, FieldVolume}

// Value returns the row's value for f and whether it is present.
func (r *RawRow) Value(f Field) (float64, bool) {
	var v float64
	switch f {
	case FieldOpen:
		v = r.Open
	case FieldHigh:
		v = r.High
	case FieldLow:
		v = r.Low
	case FieldClose:
		v = r.Close
	case FieldOpenInterest:
		v = r.OpenInterest
	case FieldVolume:
		v = r.Volume
	default:
		return 0, false
	}
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Layouts of the RawRow Date and Time strings.
const (
	DateLayout = "02/01/2006"
	TimeLayout = "15:04:05"
)
