package pagestore

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of the store's write-path counters.
type Stats struct {
	PagesWritten  uint64
	CacheHits     uint64
	CacheMisses   uint64
	QueueDepth    int64
	LastRootFlush time.Time
}

type liveStats struct {
	pagesWritten  uint64
	cacheHits     uint64
	cacheMisses   uint64
	queueDepth    int64
	lastRootFlush atomic.Value // time.Time
}

func (s *liveStats) snapshot() Stats {
	var last time.Time
	if v := s.lastRootFlush.Load(); v != nil {
		last = v.(time.Time)
	}
	return Stats{
		PagesWritten:  atomic.LoadUint64(&s.pagesWritten),
		CacheHits:     atomic.LoadUint64(&s.cacheHits),
		CacheMisses:   atomic.LoadUint64(&s.cacheMisses),
		QueueDepth:    atomic.LoadInt64(&s.queueDepth),
		LastRootFlush: last,
	}
}
