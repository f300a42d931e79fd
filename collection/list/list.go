// Package list implements the persistent, AVL-balanced-by-rank list (C4):
// GetAt/SetAt/InsertAt/RemoveAt/Slice/Head/Tail/Extend in O(log n), in-order
// iteration, and structural sharing between versions. The ordered
// dictionary (collection/ordered) reuses this same node type, sorting
// insert position by key rather than caller-supplied index.
package list

import (
	"strconv"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/internal/indexhook"
	"github.com/cuemby/protobase/internal/protoerr"
)

// List is an immutable sequence. The zero value is the empty list.
type List struct {
	root       *Node
	bus        *indexhook.Bus
	database   string
	collection string
}

// Empty returns an empty list, optionally wired to bus for index-hook
// notifications (bus may be nil).
func Empty(bus *indexhook.Bus, database, collectionName string) *List {
	return &List{bus: bus, database: database, collection: collectionName}
}

// FromPointer loads the list rooted at ptr. The zero Pointer yields an
// empty list.
func FromPointer(ptr atom.Pointer, ld *atom.Loader, bus *indexhook.Bus, database, collectionName string) (*List, error) {
	l := &List{bus: bus, database: database, collection: collectionName}
	if ptr.IsZero() {
		return l, nil
	}
	a, err := ld.Load(ptr)
	if err != nil {
		return nil, err
	}
	n, ok := a.(*Node)
	if !ok {
		return nil, protoerr.CorruptionErrorf("expected list node at %s, got %T", ptr, a)
	}
	l.root = n
	return l, nil
}

// FromValue resolves v (a field of some composite atom, KindNil/KindAtom/
// KindRef) into a list. A nil value yields an empty list.
func FromValue(v atom.Value, bus *indexhook.Bus, database, collectionName string) (*List, error) {
	l := &List{bus: bus, database: database, collection: collectionName}
	a, err := v.Resolve()
	if err != nil {
		return nil, err
	}
	if a == nil {
		return l, nil
	}
	n, ok := a.(*Node)
	if !ok {
		return nil, protoerr.CorruptionErrorf("expected list node, got %T", a)
	}
	l.root = n
	return l, nil
}

// Len returns the number of elements.
func (l *List) Len() int { return count(l.root) }

// Pointer returns the list's root pointer, or the zero Pointer if it has
// never been saved (or is empty).
func (l *List) Pointer() atom.Pointer {
	if l.root == nil {
		return atom.Pointer{}
	}
	return l.root.Pointer()
}

// Save persists every unsaved node reachable from the root and returns the
// root's pointer.
func (l *List) Save(w atom.Writer, pool *atom.Pool) (atom.Pointer, error) {
	if l.root == nil {
		return atom.Pointer{}, nil
	}
	return atom.Save(l.root, w, pool)
}

// AsValue returns a Value wrapping this list's root node, for embedding as a
// field of a composite atom (a root object, a counted set's bookkeeping
// root). Saving the owning atom saves this list as a side effect.
func (l *List) AsValue() atom.Value {
	if l.root == nil {
		return atom.Nil()
	}
	return atom.FromAtom(l.root)
}

func (l *List) clone(root *Node) *List {
	return &List{root: root, bus: l.bus, database: l.database, collection: l.collection}
}

// GetAt returns the element at index i.
func (l *List) GetAt(i int) (atom.Value, error) {
	if i < 0 || i >= l.Len() {
		return atom.Value{}, protoerr.ValidationErrorf("list index %d out of range (len %d)", i, l.Len())
	}
	return getAt(l.root, i)
}

// SetAt replaces the element at index i, returning a new List.
func (l *List) SetAt(i int, v atom.Value) (*List, error) {
	if i < 0 || i >= l.Len() {
		return nil, protoerr.ValidationErrorf("list index %d out of range (len %d)", i, l.Len())
	}
	newRoot, err := setAt(l.root, i, v)
	if err != nil {
		return nil, err
	}
	return l.clone(newRoot), nil
}

// InsertAt inserts v so it becomes element i, shifting the tail right.
// i == Len() appends.
func (l *List) InsertAt(i int, v atom.Value) (*List, error) {
	if i < 0 || i > l.Len() {
		return nil, protoerr.ValidationErrorf("list insert index %d out of range (len %d)", i, l.Len())
	}
	newRoot, err := insertAt(l.root, i, v)
	if err != nil {
		return nil, err
	}
	l.fire(indexhook.Added, strconv.Itoa(i))
	return l.clone(newRoot), nil
}

// RemoveAt removes the element at index i.
func (l *List) RemoveAt(i int) (*List, error) {
	if i < 0 || i >= l.Len() {
		return nil, protoerr.ValidationErrorf("list index %d out of range (len %d)", i, l.Len())
	}
	newRoot, err := removeAt(l.root, i)
	if err != nil {
		return nil, err
	}
	l.fire(indexhook.Removed, strconv.Itoa(i))
	return l.clone(newRoot), nil
}

// AppendFirst prepends v.
func (l *List) AppendFirst(v atom.Value) (*List, error) { return l.InsertAt(0, v) }

// AppendLast appends v.
func (l *List) AppendLast(v atom.Value) (*List, error) { return l.InsertAt(l.Len(), v) }

// Slice returns the half-open range [lo, hi) as a new List.
func (l *List) Slice(lo, hi int) (*List, error) {
	n := l.Len()
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if lo > hi {
		lo = hi
	}
	out := Empty(nil, l.database, l.collection)
	for i := lo; i < hi; i++ {
		v, err := getAt(l.root, i)
		if err != nil {
			return nil, err
		}
		newRoot, err := insertAt(out.root, out.Len(), v)
		if err != nil {
			return nil, err
		}
		out.root = newRoot
	}
	out.bus = l.bus
	return out, nil
}

// Head returns the first n elements.
func (l *List) Head(n int) (*List, error) { return l.Slice(0, n) }

// Tail returns the last n elements.
func (l *List) Tail(n int) (*List, error) { return l.Slice(l.Len()-n, l.Len()) }

// Extend appends every element of other to l.
func (l *List) Extend(other *List) (*List, error) {
	root := l.root
	idx := count(root)
	err := inorder(other.root, func(v atom.Value) error {
		newRoot, err := insertAt(root, idx, v)
		if err != nil {
			return err
		}
		root = newRoot
		idx++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l.clone(root), nil
}

// ForEach walks every element in order, stopping at the first error.
func (l *List) ForEach(visit func(atom.Value) error) error {
	return inorder(l.root, visit)
}

// Values materializes the whole list into a slice. Intended for small lists
// and tests; ForEach avoids the allocation for large ones.
func (l *List) Values() ([]atom.Value, error) {
	out := make([]atom.Value, 0, l.Len())
	err := l.ForEach(func(v atom.Value) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

func (l *List) fire(transition indexhook.Transition, key string) {
	if l.bus == nil {
		return
	}
	l.bus.Fire(indexhook.Event{
		Transition: transition,
		Database:   l.database,
		Collection: l.collection,
		Key:        key,
	})
}
