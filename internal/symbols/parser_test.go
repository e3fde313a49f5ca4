package symbols

import (
	"fmt"
	"testing"
	"time"

	"nfowide/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want models.Contract
	}{
		{"RELIANCE-I", models.Contract{Symbol: "RELIANCE", Kind: models.KindFuture, Bucket: models.BucketNear}},
		{"RELIANCE-II.NFO", models.Contract{Symbol: "RELIANCE", Kind: models.KindFuture, Bucket: models.BucketMid}},
		{"TCS-III", models.Contract{Symbol: "TCS", Kind: models.KindFuture, Bucket: models.BucketFar}},
		{"BAJAJ-AUTO-I", models.Contract{Symbol: "BAJAJ-AUTO", Kind: models.KindFuture, Bucket: models.BucketNear}},
		{"M&M-II", models.Contract{Symbol: "M&M", Kind: models.KindFuture, Bucket: models.BucketMid}},
		{"RELIANCE25NOV252000CE", models.Contract{Symbol: "RELIANCE", Kind: models.KindOption, Expiry: "25NOV25", Strike: 2000, OptionType: models.OptionCall}},
		{"RELIANCE25NOV252000CE.NFO", models.Contract{Symbol: "RELIANCE", Kind: models.KindOption, Expiry: "25NOV25", Strike: 2000, OptionType: models.OptionCall}},
		{"BAJAJ-AUTO25NOV259000PE", models.Contract{Symbol: "BAJAJ-AUTO", Kind: models.KindOption, Expiry: "25NOV25", Strike: 9000, OptionType: models.OptionPut}},
		{"M&M30DEC253450CE", models.Contract{Symbol: "M&M", Kind: models.KindOption, Expiry: "30DEC25", Strike: 3450, OptionType: models.OptionCall}},
		{"RELIANCE28NOV25FUT.NFO", models.Contract{Symbol: "RELIANCE", Kind: models.KindFuture, Expiry: "28NOV25", Bucket: models.BucketNear}},
		{"RELIANCE", models.Contract{}},
		{"RELIANCE-IV", models.Contract{}},
		{"RELIANCE25NOV252000XE", models.Contract{}},
		{"", models.Contract{}},
	}
	for _, tt := range tests {
		got := Parse(tt.in)
		tt.want.Ticker = tt.in
		if got != tt.want {
			t.Errorf("Parse(%q)=%+v want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseUnresolvedCarriesNoFields(t *testing.T) {
	got := Parse("INFY")
	if got.Resolved() || got.Symbol != "" || got.Strike != 0 || got.OptionType != models.OptionNone {
		t.Fatalf("unexpected descriptor for cash ticker: %+v", got)
	}
}

func TestParseRoundTrip(t *testing.T) {
	syms := []string{"RELIANCE", "BAJAJ-AUTO", "M&M", "TATASTEEL", "HDFCBANK"}
	for _, sym := range syms {
		for _, b := range []string{"I", "II", "III"} {
			ticker := sym + "-" + b
			got := Parse(ticker)
			if got.Kind != models.KindFuture || got.Symbol != sym || got.Bucket != models.Bucket("FUT_"+b) {
				t.Errorf("Parse(%q)=%+v", ticker, got)
			}
		}
		for _, strike := range []int64{50, 2000, 2600, 123456} {
			for _, ot := range []models.OptionType{models.OptionCall, models.OptionPut} {
				ticker := fmt.Sprintf("%s27JAN26%d%s", sym, strike, ot)
				got := Parse(ticker)
				if got.Kind != models.KindOption || got.Symbol != sym || got.Strike != strike ||
					got.OptionType != ot || got.Expiry != "27JAN26" {
					t.Errorf("Parse(%q)=%+v", ticker, got)
				}
			}
		}
	}
}

func TestParserRanksExpiriesAgainstReference(t *testing.T) {
	p := NewParser(time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC))

	if got := p.Parse("RELIANCE30DEC25FUT").Bucket; got != models.BucketMid {
		t.Errorf("dated DEC future bucket=%s want FUT_II", got)
	}
	if got := p.Parse("RELIANCE27JAN262000PE").Bucket; got != models.BucketFar {
		t.Errorf("JAN option bucket=%s want FUT_III", got)
	}
	if got := Parse("RELIANCE27JAN262000PE").Bucket; got != "" {
		t.Errorf("option bucket without reference=%q want empty", got)
	}
}

func TestIsCandidate(t *testing.T) {
	tests := []struct {
		ticker string
		symbol string
		want   bool
	}{
		{"TATASTEEL-I", "TATASTEEL", true},
		{"TATASTEEL25NOV25150CE", "TATASTEEL", true},
		{"TATASTEEL-I", "TATA", false},
		{"TATAPOWER25NOV25400PE", "TATA", false},
		{"BAJAJ-AUTO-I", "BAJAJ-AUTO", true},
		{"BAJAJFINSV-I", "BAJAJ", false},
		{"RELIANCE", "RELIANCE", false},
		{"RELIANCE-I", "", false},
	}
	for _, tt := range tests {
		if got := IsCandidate(tt.ticker, tt.symbol); got != tt.want {
			t.Errorf("IsCandidate(%q,%q)=%v want %v", tt.ticker, tt.symbol, got, tt.want)
		}
	}
}
