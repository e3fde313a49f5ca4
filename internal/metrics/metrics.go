// Registers:
//
//	#nfowide_rows_loaded_total
//	#nfowide_symbols_total{outcome}
//	#nfowide_tables_written_total{format}
//	#nfowide_bytes_written_total
//	#nfowide_duplicate_cells_total{kind}
//	#nfowide_pivot_duration_seconds
//	#go_* and process_* system metrics
//
// on a private registry. The registry can be served on /metrics while the
// run lasts and pushed to a Pushgateway once it finishes.
package metrics

import (
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"nfowide/logger"
)

var (
	once     sync.Once
	registry *prometheus.Registry

	rowsLoaded     prometheus.Counter
	symbols        *prometheus.CounterVec
	tablesWritten  *prometheus.CounterVec
	bytesWritten   prometheus.Counter
	duplicateCells *prometheus.CounterVec
	pivotDuration  prometheus.Histogram
)

// Init creates the collectors. It is safe to call more than once.
func Init() {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		rowsLoaded = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nfowide_rows_loaded_total",
			Help: "Number of long-format rows read from the master file",
		})
		symbols = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nfowide_symbols_total",
			Help: "Number of symbols processed by outcome",
		}, []string{"outcome"})
		tablesWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nfowide_tables_written_total",
			Help: "Number of wide tables persisted by format",
		}, []string{"format"})
		bytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nfowide_bytes_written_total",
			Help: "Bytes of encoded wide tables persisted",
		})
		duplicateCells = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nfowide_duplicate_cells_total",
			Help: "Cells written more than once, by duplicate or prefix collision",
		}, []string{"kind"})
		pivotDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nfowide_pivot_duration_seconds",
			Help:    "Time spent pivoting and persisting one symbol",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		})

		registry.MustRegister(rowsLoaded, symbols, tablesWritten, bytesWritten, duplicateCells, pivotDuration)
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Registry returns the registry holding every nfowide collector.
func Registry() *prometheus.Registry {
	Init()
	return registry
}

// Serve exposes the registry on addr/metrics in the background. A failing
// listener is logged, it never stops the run.
func Serve(addr string) {
	Init()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().WithComponent("metrics").WithError(err).Warn("metrics server stopped")
		}
	}()
}

// Push sends the current values to a Pushgateway under job.
func Push(url, job string) error {
	Init()
	return push.New(url, job).Gatherer(registry).Push()
}

func AddRowsLoaded(n int) {
	Init()
	rowsLoaded.Add(float64(n))
}

func IncrementSymbol(outcome string) {
	Init()
	symbols.WithLabelValues(outcome).Inc()
}

func IncrementTableWritten(format string, size int64) {
	Init()
	tablesWritten.WithLabelValues(format).Inc()
	bytesWritten.Add(float64(size))
}

// AddDuplicateCells records repeated writes; kind is "duplicate" or
// "collision".
func AddDuplicateCells(kind string, n int) {
	if n <= 0 {
		return
	}
	Init()
	duplicateCells.WithLabelValues(kind).Add(float64(n))
}

func ObservePivotSeconds(seconds float64) {
	Init()
	pivotDuration.Observe(seconds)
}
