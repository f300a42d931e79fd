package atom

import "sync"

// Cache is the content cache the design notes call for: an explicit,
// bounded-lifetime cache owned by one object space rather than a true
// weak-valued process-global map, so a closed space can drop its entries
// deterministically instead of waiting on GC (spec §4.2 / §9, and the Open
// Question decision recorded in DESIGN.md).
type Cache struct {
	mu    sync.RWMutex
	byPtr map[Pointer]Atom
}

// NewCache builds an empty content cache.
func NewCache() *Cache {
	return &Cache{byPtr: make(map[Pointer]Atom)}
}

// Get returns the cached atom for ptr, if any.
func (c *Cache) Get(ptr Pointer) (Atom, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.byPtr[ptr]
	return a, ok
}

// Put records a as the resident copy for its own pointer.
func (c *Cache) Put(ptr Pointer, a Atom) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byPtr[ptr] = a
}

// Len reports the number of cached atoms, mainly for tests and metrics.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byPtr)
}

// Clear drops every cached atom, called when the owning object space closes.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byPtr = make(map[Pointer]Atom)
}
