package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

type componentStat struct {
	warns  int64
	errors int64
}

var (
	rowsLoaded     int64
	symbolsOK      int64
	symbolsNoData  int64
	symbolsFailed  int64
	tablesWritten  int64
	bytesWritten   int64
	uploads        int64
	componentStats sync.Map // map[string]*componentStat
)

// Outcome labels for RecordSymbolOutcome.
const (
	OutcomeOK     = "ok"
	OutcomeNoData = "no_data"
	OutcomeFailed = "failed"
)

func statFor(component string) *componentStat {
	v, _ := componentStats.LoadOrStore(component, &componentStat{})
	return v.(*componentStat)
}

func recordWarn(component string) {
	atomic.AddInt64(&statFor(component).warns, 1)
}

func recordError(component string) {
	atomic.AddInt64(&statFor(component).errors, 1)
}

func AddRowsLoaded(n int) {
	atomic.AddInt64(&rowsLoaded, int64(n))
}

// RecordSymbolOutcome counts one finished symbol under its outcome label.
// Unknown labels are counted as failures.
func RecordSymbolOutcome(outcome string) {
	switch outcome {
	case OutcomeOK:
		atomic.AddInt64(&symbolsOK, 1)
	case OutcomeNoData:
		atomic.AddInt64(&symbolsNoData, 1)
	default:
		atomic.AddInt64(&symbolsFailed, 1)
	}
}

func IncrementTablesWritten(size int64) {
	atomic.AddInt64(&tablesWritten, 1)
	atomic.AddInt64(&bytesWritten, size)
}

func IncrementUploads() {
	atomic.AddInt64(&uploads, 1)
}

// RunTotals is a point-in-time copy of the run counters.
type RunTotals struct {
	RowsLoaded    int64
	SymbolsOK     int64
	SymbolsNoData int64
	SymbolsFailed int64
	TablesWritten int64
	BytesWritten  int64
	Uploads       int64
}

func Totals() RunTotals {
	return RunTotals{
		RowsLoaded:    atomic.LoadInt64(&rowsLoaded),
		SymbolsOK:     atomic.LoadInt64(&symbolsOK),
		SymbolsNoData: atomic.LoadInt64(&symbolsNoData),
		SymbolsFailed: atomic.LoadInt64(&symbolsFailed),
		TablesWritten: atomic.LoadInt64(&tablesWritten),
		BytesWritten:  atomic.LoadInt64(&bytesWritten),
		Uploads:       atomic.LoadInt64(&uploads),
	}
}

// StartReport logs a runtime report every interval until ctx is done.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				LogReport(ctx, log)
			}
		}
	}()
}

// LogReport logs host statistics next to the run counters and publishes
// them to CloudWatch.
func LogReport(ctx context.Context, log *Log) {
	cpuPct := 0.0
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		cpuPct = pct[0]
	}
	memMB := 0.0
	if vm, err := mem.VirtualMemory(); err == nil {
		memMB = float64(vm.Used) / 1024 / 1024
	}
	diskMB := 0.0
	if du, err := disk.Usage("/"); err == nil {
		diskMB = float64(du.Used) / 1024 / 1024
	}

	components := map[string]map[string]int64{}
	componentStats.Range(func(k, v any) bool {
		cs := v.(*componentStat)
		components[k.(string)] = map[string]int64{
			"warns":  atomic.LoadInt64(&cs.warns),
			"errors": atomic.LoadInt64(&cs.errors),
		}
		return true
	})

	t := Totals()
	log.WithComponent("report").WithFields(Fields{
		"rows_loaded":     t.RowsLoaded,
		"symbols_ok":      t.SymbolsOK,
		"symbols_no_data": t.SymbolsNoData,
		"symbols_failed":  t.SymbolsFailed,
		"tables_written":  t.TablesWritten,
		"bytes_written":   t.BytesWritten,
		"s3_uploads":      t.Uploads,
		"components":      components,
		"goroutines":      runtime.NumGoroutine(),
		"cpu_percent":     cpuPct,
		"memory_mb":       int64(memMB),
		"disk_mb":         int64(diskMB),
	}).Info("runtime report")

	count := func(name string, v int64) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{MetricName: aws.String(name), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(v))}
	}
	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("cpu_percent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("memory_mb"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(memMB)},
		{MetricName: aws.String("disk_mb"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(diskMB)},
		{MetricName: aws.String("bytes_written"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(t.BytesWritten))},
		count("rows_loaded", t.RowsLoaded),
		count("symbols_ok", t.SymbolsOK),
		count("symbols_no_data", t.SymbolsNoData),
		count("symbols_failed", t.SymbolsFailed),
		count("tables_written", t.TablesWritten),
		count("s3_uploads", t.Uploads),
	}
	for name, stats := range components {
		dims := []cwtypes.Dimension{{Name: aws.String("component"), Value: aws.String(name)}}
		w := count("warns", stats["warns"])
		w.Dimensions = dims
		e := count("errors", stats["errors"])
		e.Dimensions = dims
		data = append(data, w, e)
	}

	publishMetrics(ctx, data)
}
