package atom

import "github.com/cuemby/protobase/internal/metrics"

// Reader is the random-access source Load reads atom records from.
type Reader interface {
	GetBytes(ptr Pointer) ([]byte, error)
}

// Loader bundles the pieces Load (and Value.Resolve, transitively) needs to
// lazily materialize a pointer reference: the backing reader and the
// content cache that keeps a second Resolve of the same pointer from
// re-reading and re-decoding it.
type Loader struct {
	r     Reader
	cache *Cache
}

// NewLoader builds a Loader over r, sharing cache across every Loader drawn
// from the same object space.
func NewLoader(r Reader, cache *Cache) *Loader {
	return &Loader{r: r, cache: cache}
}

// Load materializes the atom at ptr, the zero Pointer always yielding
// (nil, nil).
func (ld *Loader) Load(ptr Pointer) (Atom, error) {
	if ptr.IsZero() {
		return nil, nil
	}
	if ld.cache != nil {
		if a, ok := ld.cache.Get(ptr); ok {
			metrics.ContentCacheHitsTotal.Inc()
			return a, nil
		}
	}
	raw, err := ld.r.GetBytes(ptr)
	if err != nil {
		return nil, err
	}
	a, err := decodeRecord(raw, ptr, ld)
	if err != nil {
		return nil, err
	}
	metrics.AtomsLoadedTotal.Inc()
	if ld.cache != nil {
		ld.cache.Put(ptr, a)
	}
	return a, nil
}
