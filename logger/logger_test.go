package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestWithSymbol(t *testing.T) {
	entry := Logger().WithComponent("pivot").WithSymbol("RELIANCE")
	if entry.Entry.Data["symbol"] != "RELIANCE" || entry.Entry.Data["component"] != "pivot" {
		t.Fatalf("unexpected fields: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	if err := Logger().Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestConfigureFileOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "run.log")

	log := Logger()
	if err := log.Configure("debug", "text", path, 0); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	log.WithComponent("test").WithSymbol("TCS").Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "symbol=TCS") {
		t.Fatalf("log line missing symbol: %s", data)
	}
}

func TestWarnAndErrorCountPerComponent(t *testing.T) {
	log := Logger()
	log.SetOutput(&strings.Builder{})

	log.WithComponent("count_test").Warn("w")
	log.WithComponent("count_test").Error("e")
	log.WithComponent("count_test").Error("e")

	cs := statFor("count_test")
	if cs.warns != 1 || cs.errors != 2 {
		t.Fatalf("unexpected counts: warns=%d errors=%d", cs.warns, cs.errors)
	}
}

func TestRecordSymbolOutcome(t *testing.T) {
	before := Totals()
	RecordSymbolOutcome(OutcomeOK)
	RecordSymbolOutcome(OutcomeNoData)
	RecordSymbolOutcome("boom")
	after := Totals()

	if after.SymbolsOK-before.SymbolsOK != 1 || after.SymbolsNoData-before.SymbolsNoData != 1 || after.SymbolsFailed-before.SymbolsFailed != 1 {
		t.Fatalf("unexpected totals: before=%+v after=%+v", before, after)
	}
}

type fakePublisher struct {
	data []cwtypes.MetricDatum
}

func (f *fakePublisher) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.data = append(f.data, in.MetricData...)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func (f *fakePublisher) PutDashboard(context.Context, *cloudwatch.PutDashboardInput, ...func(*cloudwatch.Options)) (*cloudwatch.PutDashboardOutput, error) {
	return &cloudwatch.PutDashboardOutput{}, nil
}

func TestLogMetricPublishes(t *testing.T) {
	fake := &fakePublisher{}
	setPublisher(fake, "NFOWideTest", "")
	defer setPublisher(nil, "", "")

	log := Logger()
	log.SetOutput(&strings.Builder{})
	log.LogMetric("writer", "table_write_ms", 12.5, "duration_ms", Fields{"symbol": "TCS", "rows": 3})

	if len(fake.data) != 1 {
		t.Fatalf("expected 1 datum, got %d", len(fake.data))
	}
	d := fake.data[0]
	if *d.MetricName != "table_write_ms" || d.Unit != cwtypes.StandardUnitMilliseconds || *d.Value != 12.5 {
		t.Fatalf("unexpected datum: %+v", d)
	}
	if len(d.Dimensions) != 2 {
		t.Fatalf("expected component and symbol dimensions, got %d", len(d.Dimensions))
	}
}
