package set

import (
	"strconv"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/collection/hashdict"
	"github.com/cuemby/protobase/internal/indexhook"
)

// Set is an immutable, content-addressed collection of atom.Values, bucketed
// by stable_hash_32 into collision chains. Members that are in-memory atoms
// without an assigned pointer yet cannot be hashed stably, so they live in a
// staged slice until Save promotes them. Every Add/Remove also appends to an
// in-memory op log that ConcurrentUpdate can replay onto a newer base state,
// supporting optimistic-concurrency rebase at commit time.
type Set struct {
	content    *hashdict.HashDict
	staged     []atom.Value
	ops        []operation
	bus        *indexhook.Bus
	database   string
	collection string
}

// Empty returns an empty set, optionally wired to bus for index-hook
// notifications (bus may be nil).
func Empty(bus *indexhook.Bus, database, collectionName string) *Set {
	return &Set{
		content:    hashdict.Empty(nil, database, collectionName),
		bus:        bus,
		database:   database,
		collection: collectionName,
	}
}

// FromPointer loads the set's persisted content rooted at ptr. Staged
// members and the op log never persist, so a reloaded set always starts
// with both empty.
func FromPointer(ptr atom.Pointer, ld *atom.Loader, bus *indexhook.Bus, database, collectionName string) (*Set, error) {
	content, err := hashdict.FromPointer(ptr, ld, nil, database, collectionName)
	if err != nil {
		return nil, err
	}
	return &Set{content: content, bus: bus, database: database, collection: collectionName}, nil
}

// Pointer returns the set's persisted-content root pointer.
func (s *Set) Pointer() atom.Pointer { return s.content.Pointer() }

// Save promotes every staged member to the persisted content (forcing a
// pointer assignment on each, per the transaction commit discipline) and
// persists the resulting hash-dict root.
func (s *Set) Save(w atom.Writer, pool *atom.Pool) (atom.Pointer, error) {
	promoted, err := s.promoteStaged(w, pool)
	if err != nil {
		return atom.Pointer{}, err
	}
	return promoted.content.Save(w, pool)
}

func (s *Set) promoteStaged(w atom.Writer, pool *atom.Pool) (*Set, error) {
	content := s.content
	for _, x := range s.staged {
		if x.Kind != atom.KindAtom || x.Nested == nil {
			continue
		}
		if _, err := atom.Save(x.Nested, w, pool); err != nil {
			return nil, err
		}
		next, err := insertIntoContent(content, x)
		if err != nil {
			return nil, err
		}
		content = next
	}
	return &Set{content: content, bus: s.bus, database: s.database, collection: s.collection}, nil
}

func insertIntoContent(content *hashdict.HashDict, x atom.Value) (*hashdict.HashDict, error) {
	h, err := stableHash32(x)
	if err != nil {
		return nil, err
	}
	chainVal, ok, err := content.Get(h)
	if err != nil {
		return nil, err
	}
	var head *chainNode
	if ok {
		head, err = resolveChainHead(chainVal)
		if err != nil {
			return nil, err
		}
		present, err := chainContains(head, x)
		if err != nil {
			return nil, err
		}
		if present {
			return content, nil
		}
	}
	return content.Set(h, atom.FromAtom(chainPrepend(head, x)))
}

func (s *Set) clone(content *hashdict.HashDict, staged []atom.Value) *Set {
	return &Set{content: content, staged: staged, ops: s.ops, bus: s.bus, database: s.database, collection: s.collection}
}

// Has reports whether x is a member, checking persisted chains and staged
// members.
func (s *Set) Has(x atom.Value) (bool, error) {
	if isUnpointedAtom(x) {
		for _, st := range s.staged {
			if st.Equal(x) {
				return true, nil
			}
		}
		return false, nil
	}
	h, err := stableHash32(x)
	if err != nil {
		return false, err
	}
	chainVal, ok, err := s.content.Get(h)
	if err != nil || !ok {
		return false, err
	}
	head, err := resolveChainHead(chainVal)
	if err != nil {
		return false, err
	}
	return chainContains(head, x)
}

// Add inserts x, returning a new Set. A no-pointer atom is staged rather
// than hashed; everything else is prepended to its collision chain unless
// already structurally present.
func (s *Set) Add(x atom.Value) (*Set, error) {
	next, err := s.addInternal(x)
	if err != nil {
		return nil, err
	}
	next.ops = appendOp(s.ops, opAdd, x)
	return next, nil
}

func (s *Set) addInternal(x atom.Value) (*Set, error) {
	if isUnpointedAtom(x) {
		for _, st := range s.staged {
			if st.Equal(x) {
				return s.clone(s.content, s.staged), nil
			}
		}
		out := s.clone(s.content, append(append([]atom.Value{}, s.staged...), x))
		out.fire(indexhook.Added, x)
		return out, nil
	}

	h, err := stableHash32(x)
	if err != nil {
		return nil, err
	}
	chainVal, ok, err := s.content.Get(h)
	if err != nil {
		return nil, err
	}
	var head *chainNode
	if ok {
		head, err = resolveChainHead(chainVal)
		if err != nil {
			return nil, err
		}
		present, err := chainContains(head, x)
		if err != nil {
			return nil, err
		}
		if present {
			return s.clone(s.content, s.staged), nil
		}
	}
	newContent, err := s.content.Set(h, atom.FromAtom(chainPrepend(head, x)))
	if err != nil {
		return nil, err
	}
	out := s.clone(newContent, s.staged)
	out.fire(indexhook.Added, x)
	return out, nil
}

// Remove splices x out of its chain (or the staged slice), returning a new
// Set and whether x was present.
func (s *Set) Remove(x atom.Value) (*Set, bool, error) {
	next, removed, err := s.removeInternal(x)
	if err != nil {
		return nil, false, err
	}
	if removed {
		next.ops = appendOp(s.ops, opRemove, x)
	}
	return next, removed, nil
}

func (s *Set) removeInternal(x atom.Value) (*Set, bool, error) {
	if isUnpointedAtom(x) {
		idx := -1
		for i, st := range s.staged {
			if st.Equal(x) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return s, false, nil
		}
		newStaged := append(append([]atom.Value{}, s.staged[:idx]...), s.staged[idx+1:]...)
		out := s.clone(s.content, newStaged)
		out.fire(indexhook.Removed, x)
		return out, true, nil
	}

	h, err := stableHash32(x)
	if err != nil {
		return nil, false, err
	}
	chainVal, ok, err := s.content.Get(h)
	if err != nil || !ok {
		return s, false, err
	}
	head, err := resolveChainHead(chainVal)
	if err != nil {
		return nil, false, err
	}
	newHead, removed, err := chainRemove(head, x)
	if err != nil {
		return nil, false, err
	}
	if !removed {
		return s, false, nil
	}
	var newContent *hashdict.HashDict
	if newHead == nil {
		newContent, _, err = s.content.Delete(h)
	} else {
		newContent, err = s.content.Set(h, atom.FromAtom(newHead))
	}
	if err != nil {
		return nil, false, err
	}
	out := s.clone(newContent, s.staged)
	out.fire(indexhook.Removed, x)
	return out, true, nil
}

// ForEach walks every member, persisted chains first (bucket order, then
// chain order), then staged members.
func (s *Set) ForEach(visit func(atom.Value) error) error {
	err := s.content.ForEach(func(_ int32, v atom.Value) error {
		head, err := resolveChainHead(v)
		if err != nil {
			return err
		}
		return chainForEach(head, visit)
	})
	if err != nil {
		return err
	}
	for _, st := range s.staged {
		if err := visit(st); err != nil {
			return err
		}
	}
	return nil
}

// Len counts every member (persisted and staged).
func (s *Set) Len() (int, error) {
	n := 0
	err := s.ForEach(func(atom.Value) error {
		n++
		return nil
	})
	return n, err
}

// Union returns a new Set containing every member of s and other.
func (s *Set) Union(other *Set) (*Set, error) {
	out := s
	err := other.ForEach(func(v atom.Value) error {
		next, err := out.addInternal(v)
		if err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// Intersection returns a new Set containing only members present in both s
// and other.
func (s *Set) Intersection(other *Set) (*Set, error) {
	out := Empty(s.bus, s.database, s.collection)
	err := s.ForEach(func(v atom.Value) error {
		has, err := other.Has(v)
		if err != nil || !has {
			return err
		}
		next, err := out.addInternal(v)
		if err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// Difference returns a new Set containing members of s not present in
// other.
func (s *Set) Difference(other *Set) (*Set, error) {
	out := Empty(s.bus, s.database, s.collection)
	err := s.ForEach(func(v atom.Value) error {
		has, err := other.Has(v)
		if err != nil || has {
			return err
		}
		next, err := out.addInternal(v)
		if err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// ConcurrentUpdate replays s's op log over current, reconciling an in-flight
// set of changes with a newer base state. Used when a commit discovers a
// competing transaction advanced the root this set was derived from.
func (s *Set) ConcurrentUpdate(current *Set) (*Set, error) {
	result := current
	for _, op := range s.ops {
		var err error
		switch op.kind {
		case opAdd:
			result, err = result.addInternal(op.value)
		case opRemove:
			result, _, err = result.removeInternal(op.value)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Set) fire(transition indexhook.Transition, x atom.Value) {
	if s.bus == nil {
		return
	}
	key := "staged"
	if !isUnpointedAtom(x) {
		if h, err := stableHash32(x); err == nil {
			key = strconv.FormatInt(int64(h), 10)
		}
	}
	s.bus.Fire(indexhook.Event{
		Transition: transition,
		Database:   s.database,
		Collection: s.collection,
		Key:        key,
	})
}
