package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a
// pipeline run.
type Metrics struct {
	TablesProcessed prometheus.Counter
	TablesFailed    prometheus.Counter
	ItemsEmitted    *prometheus.CounterVec // label: item_type={record,raw,error,summary,demo_summary}
	RunActive       prometheus.Gauge

	NormalizeErrorRecords prometheus.Counter
	MetadataFetchFailures prometheus.Counter
	FallbackRuns          *prometheus.CounterVec // label: mode={auth,error}

	TableProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		TablesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "estat_etl",
			Name:      "tables_processed_total",
			Help:      "Total source tables processed to completion.",
		}),
		TablesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "estat_etl",
			Name:      "tables_failed_total",
			Help:      "Total source tables whose data fetch failed.",
		}),
		ItemsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estat_etl",
			Name:      "items_emitted_total",
			Help:      "Items written to the sink by item type.",
		}, []string{"item_type"}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "estat_etl",
			Name:      "run_active",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
		NormalizeErrorRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "estat_etl",
			Name:      "normalize_error_records_total",
			Help:      "Synthetic error records produced by payload-level normalization failures.",
		}),
		MetadataFetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "estat_etl",
			Name:      "metadata_fetch_failures_total",
			Help:      "Metadata fetches that failed and degraded to an empty classification index.",
		}),
		FallbackRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estat_etl",
			Name:      "fallback_runs_total",
			Help:      "Runs that degraded to the sample dataset, by fallback mode.",
		}, []string{"mode"}),
		TableProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "estat_etl",
			Name:      "table_processing_duration_seconds",
			Help:      "Duration of one table's fetch-normalize-emit cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	prometheus.MustRegister(
		m.TablesProcessed,
		m.TablesFailed,
		m.ItemsEmitted,
		m.RunActive,
		m.NormalizeErrorRecords,
		m.MetadataFetchFailures,
		m.FallbackRuns,
		m.TableProcessingDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		TablesProcessed:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "estat_etl", Name: "tables_processed_total"}),
		TablesFailed:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: "estat_etl", Name: "tables_failed_total"}),
		ItemsEmitted:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "estat_etl", Name: "items_emitted_total"}, []string{"item_type"}),
		RunActive:               prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "estat_etl", Name: "run_active"}),
		NormalizeErrorRecords:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "estat_etl", Name: "normalize_error_records_total"}),
		MetadataFetchFailures:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "estat_etl", Name: "metadata_fetch_failures_total"}),
		FallbackRuns:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "estat_etl", Name: "fallback_runs_total"}, []string{"mode"}),
		TableProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "estat_etl", Name: "table_processing_duration_seconds"}),
	}
}
