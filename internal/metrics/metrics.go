// Package metrics defines and registers protobase's Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Page store metrics
	PagesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "protobase_pages_written_total",
			Help: "Total number of data pages flushed by the background writer",
		},
	)

	RecordsAppended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "protobase_records_appended_total",
			Help: "Total number of length-prefixed records appended via push_bytes",
		},
	)

	BytesAppended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "protobase_bytes_appended_total",
			Help: "Total number of payload bytes appended",
		},
	)

	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "protobase_page_cache_hits_total",
			Help: "Total number of page cache hits on read",
		},
	)

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "protobase_page_cache_misses_total",
			Help: "Total number of page cache misses on read (required a disk read)",
		},
	)

	RootFlushesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "protobase_root_flushes_total",
			Help: "Total number of times the root slot was rewritten to disk",
		},
	)

	WriteQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "protobase_write_queue_depth",
			Help: "Current number of pages queued for the background writer",
		},
	)

	// Transaction / object space metrics
	TransactionsCommittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "protobase_transactions_committed_total",
			Help: "Total number of committed transactions",
		},
	)

	TransactionsAbortedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "protobase_transactions_aborted_total",
			Help: "Total number of aborted transactions",
		},
	)

	CommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "protobase_commit_duration_seconds",
			Help:    "Time taken to commit a top-level transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Collection metrics
	SetRebasesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "protobase_set_rebases_total",
			Help: "Total number of set/counted-set op-log rebases performed on commit",
		},
	)

	SetRebaseConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "protobase_set_rebase_conflicts_total",
			Help: "Total number of op-log rebases that failed with a ConcurrencyError",
		},
	)

	AtomsSavedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "protobase_atoms_saved_total",
			Help: "Total number of atoms assigned a pointer by a save",
		},
	)

	AtomsLoadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "protobase_atoms_loaded_total",
			Help: "Total number of atoms materialized from a pointer",
		},
	)

	ContentCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "protobase_content_cache_hits_total",
			Help: "Total number of atom loads served from an object space's content cache",
		},
	)
)

func init() {
	prometheus.MustRegister(
		PagesWritten,
		RecordsAppended,
		BytesAppended,
		CacheHitsTotal,
		CacheMissesTotal,
		RootFlushesTotal,
		WriteQueueDepth,
		TransactionsCommittedTotal,
		TransactionsAbortedTotal,
		CommitDuration,
		SetRebasesTotal,
		SetRebaseConflictsTotal,
		AtomsSavedTotal,
		AtomsLoadedTotal,
		ContentCacheHitsTotal,
	)
}

// Handler returns the Prometheus HTTP handler. protobase does not start an
// HTTP server itself (spec: no network surface is part of the core); an
// embedding process mounts this handler on its own mux.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
