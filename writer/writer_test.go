package writer

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "nfowide/config"
	"nfowide/internal/metadata"
	"nfowide/models"
	"nfowide/processor"
	"nfowide/reader"
)

var tradeDate = time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)

func testTable() *models.WideTable {
	index := []time.Time{
		time.Date(2025, 10, 31, 9, 15, 0, 0, time.UTC),
		time.Date(2025, 10, 31, 9, 16, 0, 0, time.UTC),
	}
	meta := func(name string) *models.Column {
		return &models.Column{Key: models.ColumnKey{Name: name, Meta: true}, Type: models.TypeTimestamp, Times: []time.Time{tradeDate, tradeDate}}
	}
	closeCol := models.NewNumericColumn(models.ColumnKey{Name: "2000CE_Close", Prefix: "2000CE", Field: models.FieldClose, Option: true, Strike: 2000, OptionType: models.OptionCall}, 2)
	closeCol.Set(0, 5.2)
	vol := models.NewNumericColumn(models.ColumnKey{Name: "FUT_I_Volume", Prefix: "FUT_I", Field: models.FieldVolume}, 2)
	vol.Set(0, 100)
	vol.Set(1, 250)
	vol.Type = models.TypeInt64

	return &models.WideTable{
		Symbol:    "RELIANCE",
		TradeDate: tradeDate,
		Index:     index,
		Columns: []*models.Column{
			meta(models.ColumnFileDate),
			meta(models.ColumnDate),
			{Key: models.ColumnKey{Name: models.ColumnTime, Meta: true}, Type: models.TypeString, Text: []string{"09:15:00", "09:16:00"}},
			closeCol,
			vol,
		},
	}
}

func checkRoundTrip(t *testing.T, got *models.WideTable) {
	t.Helper()
	want := testTable()
	if len(got.Columns) != len(want.Columns) {
		t.Fatalf("columns = %v, want %v", got.ColumnNames(), want.ColumnNames())
	}
	for i, c := range got.Columns {
		if c.Key.Name != want.Columns[i].Key.Name || c.Type != want.Columns[i].Type {
			t.Fatalf("column %d = %s/%s, want %s/%s", i, c.Key.Name, c.Type, want.Columns[i].Key.Name, want.Columns[i].Type)
		}
	}
	closeCol, _ := got.Column("2000CE_Close")
	if v, ok := closeCol.Float(0); !ok || v != 5.2 {
		t.Errorf("2000CE_Close[0] = %v (%v)", v, ok)
	}
	if _, ok := closeCol.Float(1); ok {
		t.Error("absent cell came back present")
	}
	vol, _ := got.Column("FUT_I_Volume")
	if v, _ := vol.Float(1); v != 250 {
		t.Errorf("FUT_I_Volume[1] = %v", v)
	}
	fd, _ := got.Column(models.ColumnFileDate)
	if !fd.Times[0].Equal(tradeDate) {
		t.Errorf("FileDate = %v", fd.Times[0])
	}
	tm, _ := got.Column(models.ColumnTime)
	if tm.Text[1] != "09:16:00" {
		t.Errorf("Time = %v", tm.Text)
	}
}

func writeBytes(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestFeatherRoundTrip(t *testing.T) {
	data, err := EncodeFeather(testTable())
	if err != nil {
		t.Fatalf("EncodeFeather: %v", err)
	}
	got, err := reader.ReadTable(writeBytes(t, "t.feather", data))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	checkRoundTrip(t, got)
	if got.NumRows() != 2 || !got.Index[1].Equal(time.Date(2025, 10, 31, 9, 16, 0, 0, time.UTC)) {
		t.Errorf("index not restored: %v", got.Index)
	}
	if got.Symbol != "RELIANCE" || !got.TradeDate.Equal(tradeDate) {
		t.Errorf("schema metadata lost: %s %v", got.Symbol, got.TradeDate)
	}
}

func TestParquetTemplateKeepsOptionColumns(t *testing.T) {
	data, err := EncodeParquet(testTable(), "")
	if err != nil {
		t.Fatalf("EncodeParquet: %v", err)
	}
	template, err := reader.LoadTemplate(writeBytes(t, "tpl.parquet", data))
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}

	rows := []models.RawRow{
		{Ticker: "RELIANCE25NOV252000CE", Date: "31/10/2025", Time: "09:15:00",
			Open: math.NaN(), High: math.NaN(), Low: math.NaN(), Close: 5.2, Volume: math.NaN(), OpenInterest: math.NaN()},
		{Ticker: "RELIANCE-I", Date: "31/10/2025", Time: "09:15:00",
			Open: math.NaN(), High: math.NaN(), Low: math.NaN(), Close: 2480, Volume: 10, OpenInterest: math.NaN()},
	}
	p := processor.NewPivoter(rows, processor.Options{TradeDate: tradeDate, Template: template}, nil)
	table, _, err := p.Pivot("RELIANCE")
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}
	col, ok := table.Column("2000CE_Close")
	if !ok {
		t.Fatalf("option column dropped; have %v", table.ColumnNames())
	}
	if v, ok := col.Float(0); !ok || v != 5.2 {
		t.Fatalf("2000CE_Close = %v (%v)", v, ok)
	}
}

func TestParquetRoundTrip(t *testing.T) {
	data, err := EncodeParquet(testTable(), "snappy")
	if err != nil {
		t.Fatalf("EncodeParquet: %v", err)
	}
	got, err := reader.ReadTable(writeBytes(t, "t.parquet", data))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	checkRoundTrip(t, got)
}

func TestTemplateFromWrittenFiles(t *testing.T) {
	feather, _ := EncodeFeather(testTable())
	parquet, _ := EncodeParquet(testTable(), "")

	for name, data := range map[string][]byte{"s.feather": feather, "s.parquet": parquet} {
		schema, err := reader.LoadTemplate(writeBytes(t, name, data))
		if err != nil {
			t.Fatalf("%s: LoadTemplate: %v", name, err)
		}
		if len(schema.Fields) != 5 || schema.Fields[4].Name != "FUT_I_Volume" || schema.Fields[4].Type != models.TypeInt64 {
			t.Errorf("%s: unexpected schema %+v", name, schema.Fields)
		}
		if schema.Fields[3].Name != "2000CE_Close" {
			t.Errorf("%s: option column read back as %q", name, schema.Fields[3].Name)
		}
	}
}

type fakeS3 struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	_, _ = io.Copy(io.Discard, in.Body)
	f.mu.Lock()
	f.keys = append(f.keys, *in.Key)
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func TestSinkPersist(t *testing.T) {
	dir := t.TempDir()
	cfg := appconfig.Default()
	cfg.Writer.OutputDir = dir
	cfg.Storage.S3.Bucket = "nfo-wide"
	cfg.Storage.S3.Prefix = "/wide/"

	catalog := metadata.NewCatalog(dir, tradeDate)
	sink, err := NewSink(context.Background(), &cfg, catalog)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	s3fake := &fakeS3{}
	sink.WithS3Client(s3fake, 0)

	if err := sink.Persist(context.Background(), testTable()); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "RELIANCE_2025-10-31.feather")); err != nil {
		t.Fatalf("local file missing: %v", err)
	}
	if len(s3fake.keys) != 1 || s3fake.keys[0] != "wide/date=2025-10-31/RELIANCE_2025-10-31.feather" {
		t.Fatalf("unexpected uploads %v", s3fake.keys)
	}
	stats := sink.Stats()
	if stats.TablesWritten != 1 || stats.Uploads != 1 || stats.BytesWritten == 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	path, err := catalog.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("manifest missing: %v", err)
	}
}

func TestSinkParquetExtension(t *testing.T) {
	cfg := appconfig.Default()
	cfg.Writer.OutputDir = t.TempDir()
	cfg.Writer.Format = appconfig.FormatParquet

	sink, err := NewSink(context.Background(), &cfg, nil)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	if err := sink.Persist(context.Background(), testTable()); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Writer.OutputDir, "RELIANCE_2025-10-31.parquet")); err != nil {
		t.Fatalf("parquet file missing: %v", err)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testTable()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"FileDate,Date,Time,2000CE_Close,FUT_I_Volume",
		"2025-10-31,2025-10-31,09:15:00,5.2,100",
		"2025-10-31,2025-10-31,09:16:00,,250",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestSeekBufferOverwrite(t *testing.T) {
	buf := &seekBuffer{}
	buf.Write([]byte("abcdef"))
	if pos, _ := buf.Seek(0, io.SeekCurrent); pos != 6 {
		t.Fatalf("current offset = %d, want 6", pos)
	}
	buf.Seek(2, io.SeekStart)
	buf.Write([]byte("XY"))
	buf.Seek(0, io.SeekEnd)
	buf.Write([]byte("g"))
	if got := string(buf.Bytes()); got != "abXYefg" {
		t.Fatalf("buffer = %q", got)
	}
	if _, err := buf.Seek(-1, io.SeekStart); err == nil {
		t.Fatal("expected error for negative offset")
	}
}
