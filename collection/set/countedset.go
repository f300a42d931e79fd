package set

import (
	"strconv"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/collection/ordered"
	"github.com/cuemby/protobase/internal/indexhook"
	"github.com/cuemby/protobase/internal/protoerr"
)

const countedSetRootClassName = "protobase.counted_set_root"

// countedSetRoot bundles the four ordered dictionaries a CountedSet
// persists into one atom, the same way a transaction's root object bundles
// an object root and a literal root: each field is itself a reference to
// another collection's root node, saved as a side effect of saving this
// atom.
type countedSetRoot struct {
	atom.Base
	items        atom.Value
	counts       atom.Value
	stagedItems  atom.Value
	stagedCounts atom.Value
}

func init() {
	atom.Register(countedSetRootClassName, func() atom.Atom { return &countedSetRoot{} })
}

func (r *countedSetRoot) ClassName() string { return countedSetRootClassName }

func (r *countedSetRoot) Fields() []atom.Field {
	return []atom.Field{
		{Name: "items", Value: r.items},
		{Name: "counts", Value: r.counts},
		{Name: "staged_items", Value: r.stagedItems},
		{Name: "staged_counts", Value: r.stagedCounts},
	}
}

func (r *countedSetRoot) LoadFields(fields map[string]atom.Value) error {
	r.items = fields["items"]
	r.counts = fields["counts"]
	r.stagedItems = fields["staged_items"]
	r.stagedCounts = fields["staged_counts"]
	return nil
}

// CountedSet is an immutable multiset keyed by stable_hash: every distinct
// element maps to an occurrence count. items/counts hold the persisted view;
// staged_items/staged_counts track members inserted since the set was last
// promoted through a commit, mirroring Set's staged/persisted split without
// needing unsaved-atom bookkeeping (counted-set keys are always hashable,
// since they are stored by their stable_hash rather than by identity).
type CountedSet struct {
	items        *ordered.Dict
	counts       *ordered.Dict
	stagedItems  *ordered.Dict
	stagedCounts *ordered.Dict
	root         *countedSetRoot // the bundling atom this version would save as
	bus          *indexhook.Bus
	database     string
	collection   string
}

// EmptyCounted returns an empty counted set, optionally wired to bus for
// index-hook notifications (bus may be nil).
func EmptyCounted(bus *indexhook.Bus, database, collectionName string) *CountedSet {
	items := ordered.Empty(nil, database, collectionName)
	counts := ordered.Empty(nil, database, collectionName)
	stagedItems := ordered.Empty(nil, database, collectionName)
	stagedCounts := ordered.Empty(nil, database, collectionName)
	return &CountedSet{
		items:        items,
		counts:       counts,
		stagedItems:  stagedItems,
		stagedCounts: stagedCounts,
		root:         newCountedSetRoot(items, counts, stagedItems, stagedCounts),
		bus:          bus,
		database:     database,
		collection:   collectionName,
	}
}

func newCountedSetRoot(items, counts, stagedItems, stagedCounts *ordered.Dict) *countedSetRoot {
	return &countedSetRoot{
		items:        items.AsValue(),
		counts:       counts.AsValue(),
		stagedItems:  stagedItems.AsValue(),
		stagedCounts: stagedCounts.AsValue(),
	}
}

// CountedFromPointer loads a counted set's root object at ptr. The zero
// Pointer yields an empty counted set.
func CountedFromPointer(ptr atom.Pointer, ld *atom.Loader, bus *indexhook.Bus, database, collectionName string) (*CountedSet, error) {
	cs := EmptyCounted(bus, database, collectionName)
	if ptr.IsZero() {
		return cs, nil
	}
	a, err := ld.Load(ptr)
	if err != nil {
		return nil, err
	}
	root, ok := a.(*countedSetRoot)
	if !ok {
		return nil, protoerr.CorruptionErrorf("expected counted set root at %s, got %s", ptr, a.ClassName())
	}
	items, err := ordered.FromValue(root.items, nil, database, collectionName)
	if err != nil {
		return nil, err
	}
	counts, err := ordered.FromValue(root.counts, nil, database, collectionName)
	if err != nil {
		return nil, err
	}
	stagedItems, err := ordered.FromValue(root.stagedItems, nil, database, collectionName)
	if err != nil {
		return nil, err
	}
	stagedCounts, err := ordered.FromValue(root.stagedCounts, nil, database, collectionName)
	if err != nil {
		return nil, err
	}
	cs.items, cs.counts, cs.stagedItems, cs.stagedCounts = items, counts, stagedItems, stagedCounts
	cs.root = root
	return cs, nil
}

// Pointer returns the counted set's root-object pointer, or the zero
// Pointer if it has never been saved.
func (cs *CountedSet) Pointer() atom.Pointer { return cs.root.Pointer() }

// Save persists the four backing dictionaries and the bundling root object.
// The root object is the CountedSet's own cached instance, so the pointer
// Save assigns it is the one later Pointer calls on cs observe.
func (cs *CountedSet) Save(w atom.Writer, pool *atom.Pool) (atom.Pointer, error) {
	if _, err := cs.items.Save(w, pool); err != nil {
		return atom.Pointer{}, err
	}
	if _, err := cs.counts.Save(w, pool); err != nil {
		return atom.Pointer{}, err
	}
	if _, err := cs.stagedItems.Save(w, pool); err != nil {
		return atom.Pointer{}, err
	}
	if _, err := cs.stagedCounts.Save(w, pool); err != nil {
		return atom.Pointer{}, err
	}
	cs.root.items = cs.items.AsValue()
	cs.root.counts = cs.counts.AsValue()
	cs.root.stagedItems = cs.stagedItems.AsValue()
	cs.root.stagedCounts = cs.stagedCounts.AsValue()
	return atom.Save(cs.root, w, pool)
}

func (cs *CountedSet) clone(items, counts, stagedItems, stagedCounts *ordered.Dict) *CountedSet {
	return &CountedSet{
		items: items, counts: counts, stagedItems: stagedItems, stagedCounts: stagedCounts,
		root:       newCountedSetRoot(items, counts, stagedItems, stagedCounts),
		bus:        cs.bus, database: cs.database, collection: cs.collection,
	}
}

// Has reports whether x has a nonzero occurrence count.
func (cs *CountedSet) Has(x atom.Value) (bool, error) {
	h, err := stableHash32(x)
	if err != nil {
		return false, err
	}
	return cs.items.Has(atom.Int(int64(h)))
}

// Add records one more occurrence of x, returning a new CountedSet. The
// first occurrence of a given hash fires an Added index hook (the 0->1
// membership transition); later occurrences only bump the count.
func (cs *CountedSet) Add(x atom.Value) (*CountedSet, error) {
	h, err := stableHash32(x)
	if err != nil {
		return nil, err
	}
	key := atom.Int(int64(h))

	if v, ok, err := cs.counts.Get(key); err != nil {
		return nil, err
	} else if ok {
		n, _ := v.AsInt64()
		newCounts, err := cs.counts.Set(key, atom.Int(n+1))
		if err != nil {
			return nil, err
		}
		return cs.clone(cs.items, newCounts, cs.stagedItems, cs.stagedCounts), nil
	}

	if v, ok, err := cs.stagedCounts.Get(key); err != nil {
		return nil, err
	} else if ok {
		n, _ := v.AsInt64()
		newStagedCounts, err := cs.stagedCounts.Set(key, atom.Int(n+1))
		if err != nil {
			return nil, err
		}
		newCounts, err := cs.counts.Set(key, atom.Int(n+1))
		if err != nil {
			return nil, err
		}
		return cs.clone(cs.items, newCounts, cs.stagedItems, newStagedCounts), nil
	}

	newCounts, err := cs.counts.Set(key, atom.Int(1))
	if err != nil {
		return nil, err
	}
	newItems, err := cs.items.Set(key, x)
	if err != nil {
		return nil, err
	}
	newStagedItems, err := cs.stagedItems.Set(key, x)
	if err != nil {
		return nil, err
	}
	out := cs.clone(newItems, newCounts, newStagedItems, cs.stagedCounts)
	out.fire(indexhook.Added, h)
	return out, nil
}

// Remove records one fewer occurrence of x, returning a new CountedSet and
// whether x was present at all. The occurrence dropping to zero removes the
// item from every map and fires a Removed index hook.
func (cs *CountedSet) Remove(x atom.Value) (*CountedSet, bool, error) {
	h, err := stableHash32(x)
	if err != nil {
		return nil, false, err
	}
	key := atom.Int(int64(h))

	v, ok, err := cs.counts.Get(key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return cs, false, nil
	}
	n, _ := v.AsInt64()
	if n <= 1 {
		newCounts, _, err := cs.counts.Delete(key)
		if err != nil {
			return nil, false, err
		}
		newItems, _, err := cs.items.Delete(key)
		if err != nil {
			return nil, false, err
		}
		newStagedItems, _, err := cs.stagedItems.Delete(key)
		if err != nil {
			return nil, false, err
		}
		newStagedCounts, _, err := cs.stagedCounts.Delete(key)
		if err != nil {
			return nil, false, err
		}
		out := cs.clone(newItems, newCounts, newStagedItems, newStagedCounts)
		out.fire(indexhook.Removed, h)
		return out, true, nil
	}

	newCounts, err := cs.counts.Set(key, atom.Int(n-1))
	if err != nil {
		return nil, false, err
	}
	newStagedCounts := cs.stagedCounts
	if sv, sok, err := cs.stagedCounts.Get(key); err != nil {
		return nil, false, err
	} else if sok {
		sn, _ := sv.AsInt64()
		newStagedCounts, err = cs.stagedCounts.Set(key, atom.Int(sn-1))
		if err != nil {
			return nil, false, err
		}
	}
	return cs.clone(cs.items, newCounts, cs.stagedItems, newStagedCounts), true, nil
}

// UniqueCount returns the number of distinct elements.
func (cs *CountedSet) UniqueCount() int { return cs.items.Len() }

// TotalCount returns the sum of every element's occurrence count.
func (cs *CountedSet) TotalCount() (int64, error) {
	var total int64
	err := cs.counts.ForEach(func(_, v atom.Value) error {
		n, _ := v.AsInt64()
		total += n
		return nil
	})
	return total, err
}

// ForEach walks every distinct element (not occurrences).
func (cs *CountedSet) ForEach(visit func(atom.Value) error) error {
	return cs.items.ForEach(func(_, v atom.Value) error {
		return visit(v)
	})
}

func (cs *CountedSet) fire(transition indexhook.Transition, hash int32) {
	if cs.bus == nil {
		return
	}
	cs.bus.Fire(indexhook.Event{
		Transition: transition,
		Database:   cs.database,
		Collection: cs.collection,
		Key:        strconv.FormatInt(int64(hash), 10),
	})
}
