/*
Package metrics defines and registers all protobase metrics using the
Prometheus client library, giving an embedding process observability into
page-store throughput, cache effectiveness, and transaction outcomes.
protobase never starts its own HTTP server (spec: no network surface is part
of the core); callers mount metrics.Handler() on their own mux.

# Metric categories

Page store: PagesWritten, RecordsAppended, BytesAppended, CacheHitsTotal,
CacheMissesTotal, RootFlushesTotal, WriteQueueDepth.

Transactions: TransactionsCommittedTotal, TransactionsAbortedTotal,
CommitDuration.

Collections: SetRebasesTotal, SetRebaseConflictsTotal (op-log rebase outcomes,
spec §8 property 9), AtomsSavedTotal, AtomsLoadedTotal, ContentCacheHitsTotal.

# Usage

	timer := metrics.NewTimer()
	// ... do work ...
	timer.ObserveDuration(metrics.CommitDuration)
*/
package metrics
