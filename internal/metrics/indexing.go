package metrics

import "github.com/prometheus/client_golang/prometheus"

// Domain metrics are registered explicitly from main (no init()).
var (
	// RowsIndexedTotal counts rows successfully written to an index.
	RowsIndexedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "csvsearch",
		Name:      "rows_indexed_total",
		Help:      "Total number of CSV rows successfully indexed",
	})

	// RowsFailedTotal counts rows that could not be indexed.
	RowsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "csvsearch",
		Name:      "rows_failed_total",
		Help:      "Total number of CSV rows that failed to index",
	})

	// UploadDuration observes end-to-end upload handling time.
	UploadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "csvsearch",
		Name:      "upload_duration_seconds",
		Help:      "CSV upload and indexing duration in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	// SearchesTotal counts search requests by outcome.
	SearchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "csvsearch",
		Name:      "searches_total",
		Help:      "Total number of search requests",
	}, []string{"outcome"})

	// IndicesReapedTotal counts temporary indices removed by the reaper.
	IndicesReapedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "csvsearch",
		Name:      "indices_reaped_total",
		Help:      "Total number of temporary indices removed by the reaper",
	})
)

// RegisterDomainMetrics registers ingestion and search metrics.
func RegisterDomainMetrics() {
	prometheus.MustRegister(
		RowsIndexedTotal,
		RowsFailedTotal,
		UploadDuration,
		SearchesTotal,
		IndicesReapedTotal,
	)
}
