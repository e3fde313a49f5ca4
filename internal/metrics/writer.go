package metrics

import "nfowide/logger"

// WriterStats summarises what an output sink did during a run.
type WriterStats struct {
	TablesWritten int64
	BytesWritten  int64
	Uploads       int64
	ErrorsCount   int64
}

// ReportWriter logs the sink totals as metrics and as one summary line.
func ReportWriter(log *logger.Log, component string, stats WriterStats) {
	l := log.WithComponent(component)

	errorRate := float64(0)
	if stats.TablesWritten+stats.ErrorsCount > 0 {
		errorRate = float64(stats.ErrorsCount) / float64(stats.TablesWritten+stats.ErrorsCount)
	}
	avgBytes := float64(0)
	if stats.TablesWritten > 0 {
		avgBytes = float64(stats.BytesWritten) / float64(stats.TablesWritten)
	}

	l.LogMetric(component, "tables_written", stats.TablesWritten, "counter", nil)
	l.LogMetric(component, "bytes_written", stats.BytesWritten, "counter", nil)
	l.LogMetric(component, "s3_uploads", stats.Uploads, "counter", nil)
	l.LogMetric(component, "error_rate", errorRate, "gauge", nil)

	entry := l.WithFields(logger.Fields{
		"tables_written":      stats.TablesWritten,
		"bytes_written":       stats.BytesWritten,
		"s3_uploads":          stats.Uploads,
		"errors_count":        stats.ErrorsCount,
		"error_rate":          errorRate,
		"avg_bytes_per_table": avgBytes,
	})
	if stats.ErrorsCount > 0 {
		entry.Warn(component + " metrics")
		return
	}
	entry.Info(component + " metrics")
}
