package processor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"nfowide/internal/metrics"
	"nfowide/internal/symbols"
	"nfowide/logger"
	"nfowide/models"
)

// ErrNoData marks a symbol with no futures or options in the input.
var ErrNoData = errors.New("no data for symbol")

// Persister stores one finished wide table.
type Persister interface {
	Persist(ctx context.Context, table *models.WideTable) error
}

// Options configures a Pivoter.
type Options struct {
	TradeDate     time.Time
	Policy        DuplicatePolicy
	OptionBuckets []models.Bucket
	Template      *models.Schema
	FillMissing   bool
	MaxWorkers    int
}

// SymbolResult is the outcome of one symbol.
type SymbolResult struct {
	Symbol   string
	Outcome  string
	Rows     int
	Columns  int
	Futures  int
	Options  int
	Density  float64
	Duration time.Duration
	Stats    AssembleStats
	Err      error
}

// Pivoter runs the per-symbol pivot over a shared, read-only master file.
type Pivoter struct {
	rows   []models.RawRow
	index  *TickerIndex
	parser *symbols.Parser
	opts   Options
	sink   Persister
	log    *logger.Log
}

// NewPivoter indexes rows once; rows must not be modified afterwards.
func NewPivoter(rows []models.RawRow, opts Options, sink Persister) *Pivoter {
	if opts.Policy == "" {
		opts.Policy = KeepLast
	}
	return &Pivoter{
		rows:   rows,
		index:  NewTickerIndex(rows),
		parser: symbols.NewParser(opts.TradeDate),
		opts:   opts,
		sink:   sink,
		log:    logger.GetLogger(),
	}
}

// Index exposes the ticker index built for this run.
func (p *Pivoter) Index() *TickerIndex { return p.index }

// Pivot builds the finalized wide table of one symbol without persisting
// it. It returns ErrNoData when the symbol has no contracts.
func (p *Pivoter) Pivot(symbol string) (*models.WideTable, SymbolResult, error) {
	res := SymbolResult{Symbol: symbol}

	groups := GroupWith(p.index, p.parser, symbol, GroupOptions{OptionBuckets: p.opts.OptionBuckets})
	if len(groups) == 0 {
		return nil, res, ErrNoData
	}
	res.Futures, res.Options = countKinds(groups)

	axis := BuildAxis(p.rows, groups)
	if axis.Len() == 0 {
		return nil, res, ErrNoData
	}

	table, stats := Assemble(symbol, p.opts.TradeDate, axis, groups, p.rows, p.opts.Policy)
	res.Stats = stats
	if p.opts.Template != nil {
		ts := ApplyTemplate(table, p.opts.Template, p.opts.FillMissing)
		p.log.WithComponent("pivot").WithSymbol(symbol).WithFields(logger.Fields{
			"kept":         ts.Kept,
			"dropped":      ts.Dropped,
			"filled":       ts.Filled,
			"cast_skipped": ts.CastSkipped,
		}).Debug("applied template")
	} else {
		Finalize(table)
	}

	res.Rows = table.NumRows()
	res.Columns = len(table.Columns)
	if nonNull, total := table.Density(); total > 0 {
		res.Density = float64(nonNull) / float64(total)
	}
	return table, res, nil
}

// Process pivots and persists one symbol. A panic inside is recovered and
// reported as a failure of that symbol only.
func (p *Pivoter) Process(ctx context.Context, symbol string) (res SymbolResult) {
	start := time.Now()
	log := p.log.WithComponent("pivot").WithSymbol(symbol)

	defer func() {
		if r := recover(); r != nil {
			res = SymbolResult{Symbol: symbol, Err: fmt.Errorf("panic pivoting %s: %v", symbol, r)}
			log.WithFields(logger.Fields{"stack": string(debug.Stack())}).Error("recovered panic")
		}
		res.Duration = time.Since(start)
		res.Outcome = outcomeOf(res.Err)
		p.record(res)
	}()

	table, res, err := p.Pivot(symbol)
	if err != nil {
		res.Err = err
		return res
	}

	if p.sink != nil {
		if err := p.sink.Persist(ctx, table); err != nil {
			res.Err = fmt.Errorf("persist %s: %w", table.Name(), err)
			return res
		}
	}
	return res
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return logger.OutcomeOK
	case errors.Is(err, ErrNoData):
		return logger.OutcomeNoData
	default:
		return logger.OutcomeFailed
	}
}

func (p *Pivoter) record(res SymbolResult) {
	logger.RecordSymbolOutcome(res.Outcome)
	metrics.IncrementSymbol(res.Outcome)
	metrics.ObservePivotSeconds(res.Duration.Seconds())
	metrics.AddDuplicateCells("duplicate", res.Stats.Duplicates)
	metrics.AddDuplicateCells("collision", res.Stats.Collisions)

	log := p.log.WithComponent("pivot").WithSymbol(res.Symbol)
	switch res.Outcome {
	case logger.OutcomeOK:
		log.WithFields(logger.Fields{
			"rows":        res.Rows,
			"columns":     res.Columns,
			"futures":     res.Futures,
			"options":     res.Options,
			"density_pct": 100 * res.Density,
			"duplicates":  res.Stats.Duplicates,
			"collisions":  res.Stats.Collisions,
			"dropped":     res.Stats.DroppedRows,
		}).Info("symbol pivoted")
		if res.Stats.Collisions > 0 {
			log.WithFields(logger.Fields{"collisions": res.Stats.Collisions, "policy": p.opts.Policy}).
				Warn("contracts from different expiries share column prefixes")
		}
		logger.LogPerformanceEntry(log, "pivot", "process_symbol", res.Duration, logger.Fields{"rows": res.Rows})
	case logger.OutcomeNoData:
		log.Info("no futures or options found")
	default:
		log.WithError(res.Err).Error("symbol failed")
	}
}

// Run processes symbols on MaxWorkers goroutines and returns one result per
// symbol in input order. Cancelling ctx stops dispatching new symbols; the
// ones never started are reported as failed with the context error.
func (p *Pivoter) Run(ctx context.Context, syms []string) []SymbolResult {
	numWorkers := p.opts.MaxWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}

	log := p.log.WithComponent("pivot")
	log.WithFields(logger.Fields{
		"workers": numWorkers,
		"symbols": len(syms),
		"tickers": p.index.Len(),
	}).Info("starting pivot workers")

	results := make([]SymbolResult, len(syms))
	started := make([]bool, len(syms))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.Process(ctx, syms[i])
			}
		}()
	}

dispatch:
	for i := range syms {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
			started[i] = true
		}
	}
	close(jobs)
	wg.Wait()

	for i, ok := range started {
		if !ok {
			results[i] = SymbolResult{Symbol: syms[i], Outcome: logger.OutcomeFailed, Err: ctx.Err()}
		}
	}
	return results
}

// Tally counts results per outcome.
func Tally(results []SymbolResult) map[string]int {
	t := map[string]int{logger.OutcomeOK: 0, logger.OutcomeNoData: 0, logger.OutcomeFailed: 0}
	for _, r := range results {
		t[r.Outcome]++
	}
	return t
}
