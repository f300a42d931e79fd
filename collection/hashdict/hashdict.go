package hashdict

import (
	"strconv"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/internal/indexhook"
	"github.com/cuemby/protobase/internal/protoerr"
)

// HashDict is an immutable int32-hash-keyed dictionary. The zero value is
// the empty dictionary.
type HashDict struct {
	root       *Node
	bus        *indexhook.Bus
	database   string
	collection string
}

// Empty returns an empty dictionary, optionally wired to bus for index-hook
// notifications (bus may be nil).
func Empty(bus *indexhook.Bus, database, collectionName string) *HashDict {
	return &HashDict{bus: bus, database: database, collection: collectionName}
}

// FromPointer loads the dictionary rooted at ptr. The zero Pointer yields an
// empty dictionary.
func FromPointer(ptr atom.Pointer, ld *atom.Loader, bus *indexhook.Bus, database, collectionName string) (*HashDict, error) {
	d := &HashDict{bus: bus, database: database, collection: collectionName}
	if ptr.IsZero() {
		return d, nil
	}
	a, err := ld.Load(ptr)
	if err != nil {
		return nil, err
	}
	n, ok := a.(*Node)
	if !ok {
		return nil, protoerr.CorruptionErrorf("expected hashdict node at %s, got %T", ptr, a)
	}
	d.root = n
	return d, nil
}

// FromValue resolves v (a field of some composite atom, KindNil/KindAtom/
// KindRef) into a dictionary. A nil value yields an empty dictionary.
func FromValue(v atom.Value, bus *indexhook.Bus, database, collectionName string) (*HashDict, error) {
	d := &HashDict{bus: bus, database: database, collection: collectionName}
	a, err := v.Resolve()
	if err != nil {
		return nil, err
	}
	if a == nil {
		return d, nil
	}
	n, ok := a.(*Node)
	if !ok {
		return nil, protoerr.CorruptionErrorf("expected hashdict node, got %T", a)
	}
	d.root = n
	return d, nil
}

// Len returns the number of entries.
func (d *HashDict) Len() int { return count(d.root) }

// Pointer returns the dictionary's root pointer, or the zero Pointer if it
// has never been saved (or is empty).
func (d *HashDict) Pointer() atom.Pointer {
	if d.root == nil {
		return atom.Pointer{}
	}
	return d.root.Pointer()
}

// Save persists every unsaved node reachable from the root and returns the
// root's pointer.
func (d *HashDict) Save(w atom.Writer, pool *atom.Pool) (atom.Pointer, error) {
	if d.root == nil {
		return atom.Pointer{}, nil
	}
	return atom.Save(d.root, w, pool)
}

// AsValue returns a Value wrapping this dictionary's root node, for
// embedding as a field of a composite atom (collection/set's content root).
func (d *HashDict) AsValue() atom.Value {
	if d.root == nil {
		return atom.Nil()
	}
	return atom.FromAtom(d.root)
}

func (d *HashDict) clone(root *Node) *HashDict {
	return &HashDict{root: root, bus: d.bus, database: d.database, collection: d.collection}
}

// Get returns the value stored for key, if present.
func (d *HashDict) Get(key int32) (atom.Value, bool, error) {
	return get(d.root, key)
}

// Has reports whether key is present.
func (d *HashDict) Has(key int32) (bool, error) {
	_, found, err := get(d.root, key)
	return found, err
}

// Set inserts or replaces the entry for key, returning a new HashDict.
func (d *HashDict) Set(key int32, value atom.Value) (*HashDict, error) {
	existed, err := d.Has(key)
	if err != nil {
		return nil, err
	}
	newRoot, err := set(d.root, key, value)
	if err != nil {
		return nil, err
	}
	if !existed {
		d.fire(indexhook.Added, key)
	}
	return d.clone(newRoot), nil
}

// Delete removes the entry for key, if present.
func (d *HashDict) Delete(key int32) (*HashDict, bool, error) {
	newRoot, removed, err := remove(d.root, key)
	if err != nil {
		return nil, false, err
	}
	if !removed {
		return d, false, nil
	}
	d.fire(indexhook.Removed, key)
	return d.clone(newRoot), true, nil
}

// GetFirst returns the entry with the smallest key.
func (d *HashDict) GetFirst() (int32, atom.Value, bool, error) {
	return getFirst(d.root)
}

// GetLast returns the entry with the largest key.
func (d *HashDict) GetLast() (int32, atom.Value, bool, error) {
	return getLast(d.root)
}

// ForEach walks entries in ascending key order, stopping at the first error.
func (d *HashDict) ForEach(visit func(key int32, value atom.Value) error) error {
	return inorder(d.root, visit)
}

func (d *HashDict) fire(transition indexhook.Transition, key int32) {
	if d.bus == nil {
		return
	}
	d.bus.Fire(indexhook.Event{
		Transition: transition,
		Database:   d.database,
		Collection: d.collection,
		Key:        strconv.FormatInt(int64(key), 10),
	})
}
