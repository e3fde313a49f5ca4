package processor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"nfowide/logger"
	"nfowide/models"
)

type memorySink struct {
	mu     sync.Mutex
	tables map[string]*models.WideTable
	fail   string
}

func (m *memorySink) Persist(_ context.Context, table *models.WideTable) error {
	if table.Symbol == m.fail {
		return errors.New("disk full")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables == nil {
		m.tables = make(map[string]*models.WideTable)
	}
	m.tables[table.Name()] = table
	return nil
}

type panicSink struct{ symbol string }

func (p panicSink) Persist(_ context.Context, table *models.WideTable) error {
	if table.Symbol == p.symbol {
		panic("boom")
	}
	return nil
}

func pivotRows() []models.RawRow {
	return []models.RawRow{
		fullBar("RELIANCE-I", "09:15:00", 2480),
		fullBar("RELIANCE25NOV252000CE", "09:16:00", 5),
		fullBar("TCS-I", "09:15:00", 3100),
		fullBar("TCS25NOV253000PE", "09:15:00", 12),
		fullBar("INFY25NOV25.NFO", "09:15:00", 1),
	}
}

func TestPivoterRun(t *testing.T) {
	sink := &memorySink{fail: "TCS"}
	p := NewPivoter(pivotRows(), Options{TradeDate: tradeDate, MaxWorkers: 2}, sink)

	results := p.Run(context.Background(), []string{"RELIANCE", "TCS", "INFY"})

	want := []string{logger.OutcomeOK, logger.OutcomeFailed, logger.OutcomeNoData}
	for i, r := range results {
		if r.Outcome != want[i] {
			t.Errorf("%s outcome = %s, want %s (%v)", r.Symbol, r.Outcome, want[i], r.Err)
		}
	}
	if !errors.Is(results[2].Err, ErrNoData) {
		t.Errorf("INFY error = %v, want ErrNoData", results[2].Err)
	}

	table, ok := sink.tables["RELIANCE_2025-10-31"]
	if !ok {
		t.Fatalf("RELIANCE table not persisted: %v", sink.tables)
	}
	if table.NumRows() != 2 || results[0].Futures != 1 || results[0].Options != 1 {
		t.Fatalf("unexpected RELIANCE result %+v", results[0])
	}
	if names := table.ColumnNames(); names[0] != models.ColumnFileDate || names[3] != "2000CE_Close" {
		t.Fatalf("table not finalized: %v", names)
	}
	if results[0].Density <= 0 || results[0].Density >= 1 {
		t.Fatalf("density = %v", results[0].Density)
	}

	tally := Tally(results)
	if tally[logger.OutcomeOK] != 1 || tally[logger.OutcomeFailed] != 1 || tally[logger.OutcomeNoData] != 1 {
		t.Fatalf("unexpected tally %v", tally)
	}
}

func TestPivoterRecoversPanics(t *testing.T) {
	p := NewPivoter(pivotRows(), Options{TradeDate: tradeDate, MaxWorkers: 1}, panicSink{symbol: "RELIANCE"})

	results := p.Run(context.Background(), []string{"RELIANCE", "TCS"})
	if results[0].Outcome != logger.OutcomeFailed || results[0].Err == nil {
		t.Fatalf("panic not reported as failure: %+v", results[0])
	}
	if results[1].Outcome != logger.OutcomeOK {
		t.Fatalf("panic in one symbol affected another: %+v", results[1])
	}
}

func TestPivoterCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPivoter(pivotRows(), Options{TradeDate: tradeDate, MaxWorkers: 1}, nil)
	results := p.Run(ctx, []string{"RELIANCE", "TCS"})
	for _, r := range results {
		if r.Outcome == logger.OutcomeFailed && !errors.Is(r.Err, context.Canceled) {
			t.Errorf("%s failed with %v", r.Symbol, r.Err)
		}
	}
}

func TestPivotWithTemplate(t *testing.T) {
	schema := &models.Schema{Fields: []models.SchemaField{
		{Name: "Time", Type: models.TypeString},
		{Name: "FUT_I_Close", Type: models.TypeFloat64},
	}}
	p := NewPivoter(pivotRows(), Options{TradeDate: tradeDate, Template: schema}, nil)

	table, res, err := p.Pivot("RELIANCE")
	if err != nil {
		t.Fatalf("pivot failed: %v", err)
	}
	if res.Columns != 2 || len(table.Columns) != 2 {
		t.Fatalf("template not applied: %v", table.ColumnNames())
	}
}
