package processor

import (
	"reflect"
	"testing"

	"nfowide/internal/symbols"
	"nfowide/models"
)

func TestPrefixFor(t *testing.T) {
	cases := []struct {
		ticker string
		want   string
	}{
		{"RELIANCE-I", "FUT_I"},
		{"RELIANCE-III", "FUT_III"},
		{"RELIANCE25NOV252000CE", "2000CE"},
		{"NIFTY25NOV2526000PE.NFO", "26000PE"},
	}
	for _, c := range cases {
		if got := PrefixFor(symbols.Parse(c.ticker)); got != c.want {
			t.Errorf("PrefixFor(%s) = %s, want %s", c.ticker, got, c.want)
		}
	}
}

func TestFormatStrikeHasNoDecimal(t *testing.T) {
	if FormatStrike(2600) != "2600" || FormatStrike(2600.0) != "2600" {
		t.Fatalf("float strike rendered with a fraction: %s", FormatStrike(2600.0))
	}
	if FormatStrike(2612.5) != "2612.5" {
		t.Fatalf("fractional strike lost: %s", FormatStrike(2612.5))
	}
	if FormatStrike(2600.0)+"CE" != PrefixFor(symbols.Parse("X25NOV252600CE")) {
		t.Fatal("float and integer strikes name different columns")
	}
}

func TestParseColumnKey(t *testing.T) {
	cases := []struct {
		name string
		want models.ColumnKey
	}{
		{"Time", models.ColumnKey{Name: "Time", Meta: true}},
		{"FUT_II_Open_Interest", models.ColumnKey{Name: "FUT_II_Open_Interest", Prefix: "FUT_II", Field: models.FieldOpenInterest}},
		{"1100CE_Open", models.ColumnKey{Name: "1100CE_Open", Prefix: "1100CE", Field: models.FieldOpen, Option: true, Strike: 1100, OptionType: models.OptionCall}},
		{"2600.0PE_Close", models.ColumnKey{Name: "2600PE_Close", Prefix: "2600PE", Field: models.FieldClose, Option: true, Strike: 2600, OptionType: models.OptionPut}},
		{"Datetime", models.ColumnKey{Name: "Datetime", Prefix: "Datetime"}},
	}
	for _, c := range cases {
		if got := ParseColumnKey(c.name); got != c.want {
			t.Errorf("ParseColumnKey(%s) = %+v, want %+v", c.name, got, c.want)
		}
	}
}

func TestSynthesizedKeysMatchParsedKeys(t *testing.T) {
	groups := []ContractRows{
		{Contract: symbols.Parse("RELIANCE-I")},
		{Contract: symbols.Parse("RELIANCE25NOV252000CE")},
	}
	for _, key := range Synthesize(groups) {
		if got := ParseColumnKey(key.Name); got != key {
			t.Errorf("key %s: synthesized %+v, parsed %+v", key.Name, key, got)
		}
	}
}

func TestSynthesizeDedupesPrefixes(t *testing.T) {
	groups := []ContractRows{
		{Contract: symbols.Parse("TCS25NOV253000CE")},
		{Contract: symbols.Parse("TCS30DEC253000CE")},
		{Contract: symbols.Parse("TCS-I")},
	}
	keys := Synthesize(groups)
	if want := len(models.MetadataColumns) + 2*len(models.Fields); len(keys) != want {
		t.Fatalf("expected %d keys, got %d", want, len(keys))
	}
}

func TestSortColumns(t *testing.T) {
	names := []string{"1200PE_Close", "1100CE_Open", "FUT_I_Volume", "1100CE_Close", "Time"}
	keys := make([]models.ColumnKey, len(names))
	for i, n := range names {
		keys[i] = ParseColumnKey(n)
	}
	SortColumns(keys)

	got := make([]string, len(keys))
	for i, k := range keys {
		got[i] = k.Name
	}
	want := []string{"Time", "1100CE_Close", "1100CE_Open", "1200PE_Close", "FUT_I_Volume"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestSortColumnsFullOrder(t *testing.T) {
	names := []string{
		"FUT_II_Close", "900PE_Open", "Date", "900CE_Volume", "FUT_I_Close",
		"10000CE_Close", "FileDate", "900CE_Close", "Time",
	}
	keys := make([]models.ColumnKey, len(names))
	for i, n := range names {
		keys[i] = ParseColumnKey(n)
	}
	SortColumns(keys)

	got := make([]string, len(keys))
	for i, k := range keys {
		got[i] = k.Name
	}
	want := []string{
		"FileDate", "Date", "Time",
		"900CE_Close", "900CE_Volume", "900PE_Open", "10000CE_Close",
		"FUT_I_Close", "FUT_II_Close",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}
