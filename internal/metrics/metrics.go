package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Database metrics
var (
	// DBQueriesTotal tracks the total number of database queries
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total number of database queries executed",
		},
		[]string{"query_type", "table", "status"},
	)

	// DBQueryDuration tracks the duration of database queries
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type", "table"},
	)
)

// Extraction metrics
var (
	SeriesExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flo2d_series_extracted_total",
			Help: "Element series extracted from model reports",
		},
		[]string{"report"},
	)

	SeriesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flo2d_series_skipped_total",
			Help: "Series or horizon buckets not written",
		},
		[]string{"reason"},
	)

	ReportFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flo2d_report_failures_total",
			Help: "Reports that could not be extracted",
		},
		[]string{"report"},
	)

	RowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flo2d_rows_written_total",
			Help: "Timeseries rows inserted or updated",
		},
	)

	BlocksTruncated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flo2d_blocks_truncated_total",
			Help: "Channel blocks cut at the probed series length",
		},
	)

	LastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flo2d_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last run that finished without a fatal error",
		},
	)
)

// RecordDBQuery records a database query execution
func RecordDBQuery(queryType, table string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DBQueriesTotal.WithLabelValues(queryType, table, status).Inc()
	DBQueryDuration.WithLabelValues(queryType, table).Observe(duration.Seconds())
}

// Push sends everything in the default registry to a Pushgateway. Batch runs end before
// any scrape could happen, so this is how their metrics leave the process.
func Push(url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
