// Package objectspace implements the object space an embedding process
// opens over a single backing file: the paged store (pagestore.Store), the
// shared atom loader/cache/literal pool, the space lock that serializes
// writers, and the root-history list every commit prepends to.
//
// Exactly one mutable current-root pointer exists at any moment (the
// pagestore.Store's own root slot); it always names the head of a persisted
// list (collection/list) of root objects. A root object bundles the
// database-name -> database-root-dict mapping and the literal pool's
// persisted state into one saved atom, so reopening a space after a clean
// close or a crash only ever needs to resolve that one pointer.
package objectspace

import (
	"sync"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/collection/list"
	"github.com/cuemby/protobase/collection/ordered"
	"github.com/cuemby/protobase/internal/config"
	"github.com/cuemby/protobase/internal/indexhook"
	"github.com/cuemby/protobase/internal/obslog"
	"github.com/cuemby/protobase/internal/protoerr"
	"github.com/cuemby/protobase/pagestore"
)

// ObjectSpace is one open backing file plus everything a transaction needs
// to read and write through it.
type ObjectSpace struct {
	store  *pagestore.Store
	pool   *atom.Pool
	cache  *atom.Cache
	loader *atom.Loader
	bus    *indexhook.Bus

	// mu is the space lock: it serializes the read-modify-swing sequence of
	// a top-level commit and of database create/remove/rename, per spec's
	// concurrency model ("concurrent writers are serialized by the space
	// lock; concurrent read-only transactions proceed without mutual
	// exclusion"). Begin never takes it.
	mu sync.Mutex
}

// Open opens or creates the backing file at path. A nil cfg uses
// config.Default(); a nil bus means index hooks are not wired to anything.
func Open(path string, cfg *config.Store, bus *indexhook.Bus) (*ObjectSpace, error) {
	store, err := pagestore.Open(path, cfg)
	if err != nil {
		return nil, err
	}
	cache := atom.NewCache()
	return &ObjectSpace{
		store:  store,
		pool:   atom.NewPool(),
		cache:  cache,
		loader: atom.NewLoader(store, cache),
		bus:    bus,
	}, nil
}

// Close drops the space's content cache, then flushes and closes the
// backing store.
func (s *ObjectSpace) Close() error {
	s.cache.Clear()
	return s.store.Close()
}

// Loader is the shared atom loader transactions resolve lazy references
// through.
func (s *ObjectSpace) Loader() *atom.Loader { return s.loader }

// Pool is the shared literal-interning pool; reusing one pool across every
// transaction in the space's lifetime means a literal saved once keeps its
// pointer for every later Save that interns the same text.
func (s *ObjectSpace) Pool() *atom.Pool { return s.pool }

// Writer is the append-only sink every Save call in this space writes
// through.
func (s *ObjectSpace) Writer() atom.Writer { return s.store }

// Bus is the index-hook bus collections in this space fire Added/Removed
// events on (nil if the space was opened without one).
func (s *ObjectSpace) Bus() *indexhook.Bus { return s.bus }

// Lock acquires the space lock. Callers release it with Unlock once their
// read-modify-swing sequence (a commit, or a database create/remove/rename)
// has either swung the root pointer or given up.
func (s *ObjectSpace) Lock() { s.mu.Lock() }

// Unlock releases the space lock.
func (s *ObjectSpace) Unlock() { s.mu.Unlock() }

// CurrentHistory loads the root-history list at the store's current root
// pointer. A space that has never committed yields an empty list.
func (s *ObjectSpace) CurrentHistory() (*list.List, error) {
	return list.FromPointer(s.store.Root(), s.loader, nil, "", "")
}

// CurrentRootObject returns the head of the root history: the most
// recently committed snapshot of every database's root dict and the
// literal pool. A space that has never committed yields EmptyRootObject().
func (s *ObjectSpace) CurrentRootObject() (*RootObject, error) {
	hist, err := s.CurrentHistory()
	if err != nil {
		return nil, err
	}
	if hist.Len() == 0 {
		return EmptyRootObject(), nil
	}
	v, err := hist.GetAt(0)
	if err != nil {
		return nil, err
	}
	return RootObjectFromValue(v)
}

// CommitRootObject saves ro and prepends it to the root history, then
// swings the space's storage pointer to the new history head. Callers must
// hold the space lock for the whole read-current/build-ro/CommitRootObject
// sequence, so no concurrent commit's swing is lost between the read this
// ro was built from and the swing CommitRootObject performs.
func (s *ObjectSpace) CommitRootObject(ro *RootObject) (atom.Pointer, error) {
	hist, err := s.CurrentHistory()
	if err != nil {
		return atom.Pointer{}, err
	}
	if _, err := ro.Save(s.store, s.pool); err != nil {
		return atom.Pointer{}, err
	}
	newHist, err := hist.AppendFirst(ro.AsValue())
	if err != nil {
		return atom.Pointer{}, err
	}
	ptr, err := newHist.Save(s.store, s.pool)
	if err != nil {
		return atom.Pointer{}, err
	}
	s.store.SetRoot(ptr)
	obslog.Component("objectspace").Debug().Str("pointer", ptr.String()).Msg("root history swung")
	return ptr, nil
}

// DatabaseRootDict loads the per-database root dict named by the entry
// database holds in ro's object root, treating a nil entry as an empty dict
// (a database that exists but has never had a root object written to it).
// The bool result reports whether database exists at all.
func (s *ObjectSpace) DatabaseRootDict(ro *RootObject, database string) (*ordered.Dict, bool, error) {
	v, ok, err := ro.ObjectRoot().Get(atom.Str(database))
	if err != nil || !ok {
		return nil, false, err
	}
	d, err := ordered.FromValue(v, s.bus, database, "")
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}

// CreateDatabase adds an empty database entry to the current root object
// and commits it. Creating an already-existing database is a
// ValidationError.
func (s *ObjectSpace) CreateDatabase(name string) error {
	s.Lock()
	defer s.Unlock()

	ro, err := s.CurrentRootObject()
	if err != nil {
		return err
	}
	if _, ok, err := ro.ObjectRoot().Get(atom.Str(name)); err != nil {
		return err
	} else if ok {
		return protoerr.ValidationErrorf("database %q already exists", name)
	}
	newObjectRoot, err := ro.ObjectRoot().Set(atom.Str(name), emptyDatabaseRootValue())
	if err != nil {
		return err
	}
	if _, err := s.CommitRootObject(ro.WithObjectRoot(newObjectRoot)); err != nil {
		return err
	}
	obslog.Component("objectspace").Info().Str("database", name).Msg("database created")
	return nil
}

// RemoveDatabase deletes a database entry and commits the result. Removing
// an unknown database is a ValidationError.
func (s *ObjectSpace) RemoveDatabase(name string) error {
	s.Lock()
	defer s.Unlock()

	ro, err := s.CurrentRootObject()
	if err != nil {
		return err
	}
	newObjectRoot, removed, err := ro.ObjectRoot().Delete(atom.Str(name))
	if err != nil {
		return err
	}
	if !removed {
		return protoerr.ValidationErrorf("unknown database %q", name)
	}
	if _, err := s.CommitRootObject(ro.WithObjectRoot(newObjectRoot)); err != nil {
		return err
	}
	obslog.Component("objectspace").Info().Str("database", name).Msg("database removed")
	return nil
}

// RenameDatabase moves a database's root-dict entry to a new name and
// commits the result. Renaming an unknown database, or onto a name already
// in use, is a ValidationError.
func (s *ObjectSpace) RenameDatabase(oldName, newName string) error {
	s.Lock()
	defer s.Unlock()

	ro, err := s.CurrentRootObject()
	if err != nil {
		return err
	}
	v, ok, err := ro.ObjectRoot().Get(atom.Str(oldName))
	if err != nil {
		return err
	}
	if !ok {
		return protoerr.ValidationErrorf("unknown database %q", oldName)
	}
	if _, ok, err := ro.ObjectRoot().Get(atom.Str(newName)); err != nil {
		return err
	} else if ok {
		return protoerr.ValidationErrorf("database %q already exists", newName)
	}
	withNew, err := ro.ObjectRoot().Set(atom.Str(newName), v)
	if err != nil {
		return err
	}
	withoutOld, _, err := withNew.Delete(atom.Str(oldName))
	if err != nil {
		return err
	}
	if _, err := s.CommitRootObject(ro.WithObjectRoot(withoutOld)); err != nil {
		return err
	}
	obslog.Component("objectspace").Info().Str("from", oldName).Str("to", newName).Msg("database renamed")
	return nil
}

func emptyDatabaseRootValue() atom.Value { return atom.Nil() }
