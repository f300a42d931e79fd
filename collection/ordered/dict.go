// Package ordered implements the persistent ordered dictionary (C5): a
// sorted (key, value) sequence backed by collection/list, with find_index
// doing a binary search through order_key comparisons rather than an
// insertion-order scan. It is deliberately built atop the rank list instead
// of its own tree, inheriting the list's O(log n) insert/remove and its
// node-level paging for free.
package ordered

import (
	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/collection/list"
	"github.com/cuemby/protobase/internal/indexhook"
)

// Dict is an immutable, order_key-sorted sequence of (key, value) pairs.
type Dict struct {
	seq *list.List
}

// Empty returns an empty dictionary, optionally wired to bus for
// index-hook notifications.
func Empty(bus *indexhook.Bus, database, collectionName string) *Dict {
	return &Dict{seq: list.Empty(bus, database, collectionName)}
}

// FromPointer loads the dictionary rooted at ptr.
func FromPointer(ptr atom.Pointer, ld *atom.Loader, bus *indexhook.Bus, database, collectionName string) (*Dict, error) {
	seq, err := list.FromPointer(ptr, ld, bus, database, collectionName)
	if err != nil {
		return nil, err
	}
	return &Dict{seq: seq}, nil
}

// FromValue resolves v (a field of some composite atom) into a dictionary.
// A nil value yields an empty dictionary.
func FromValue(v atom.Value, bus *indexhook.Bus, database, collectionName string) (*Dict, error) {
	seq, err := list.FromValue(v, bus, database, collectionName)
	if err != nil {
		return nil, err
	}
	return &Dict{seq: seq}, nil
}

// Len returns the number of entries.
func (d *Dict) Len() int { return d.seq.Len() }

// Pointer returns the dictionary's root pointer.
func (d *Dict) Pointer() atom.Pointer { return d.seq.Pointer() }

// Save persists every unsaved node reachable from the dictionary.
func (d *Dict) Save(w atom.Writer, pool *atom.Pool) (atom.Pointer, error) {
	return d.seq.Save(w, pool)
}

// AsValue returns a Value wrapping this dictionary's backing sequence, for
// embedding as a field of a composite atom.
func (d *Dict) AsValue() atom.Value { return d.seq.AsValue() }

// findIndex binary-searches the backing sequence for key, returning the
// index it occupies (if found) or the index it would be inserted at.
func (d *Dict) findIndex(key atom.Value) (int, bool, error) {
	lo, hi := 0, d.seq.Len()
	for lo < hi {
		mid := (lo + hi) / 2
		v, err := d.seq.GetAt(mid)
		if err != nil {
			return 0, false, err
		}
		pr, err := pairOf(v)
		if err != nil {
			return 0, false, err
		}
		c, err := compareOrderKey(pr.key, key)
		if err != nil {
			return 0, false, err
		}
		switch {
		case c == 0:
			return mid, true, nil
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false, nil
}

// Get returns the value stored for key, if present.
func (d *Dict) Get(key atom.Value) (atom.Value, bool, error) {
	idx, found, err := d.findIndex(key)
	if err != nil || !found {
		return atom.Value{}, false, err
	}
	v, err := d.seq.GetAt(idx)
	if err != nil {
		return atom.Value{}, false, err
	}
	pr, err := pairOf(v)
	if err != nil {
		return atom.Value{}, false, err
	}
	return pr.value, true, nil
}

// Has reports whether key is present.
func (d *Dict) Has(key atom.Value) (bool, error) {
	_, found, err := d.findIndex(key)
	return found, err
}

// Set inserts or replaces the entry for key, returning a new Dict.
func (d *Dict) Set(key, value atom.Value) (*Dict, error) {
	idx, found, err := d.findIndex(key)
	if err != nil {
		return nil, err
	}
	pr := &pairAtom{key: key, value: value}
	var newSeq *list.List
	if found {
		newSeq, err = d.seq.SetAt(idx, atom.FromAtom(pr))
	} else {
		newSeq, err = d.seq.InsertAt(idx, atom.FromAtom(pr))
	}
	if err != nil {
		return nil, err
	}
	return &Dict{seq: newSeq}, nil
}

// Delete removes the entry for key, if present.
func (d *Dict) Delete(key atom.Value) (*Dict, bool, error) {
	idx, found, err := d.findIndex(key)
	if err != nil || !found {
		return d, false, err
	}
	newSeq, err := d.seq.RemoveAt(idx)
	if err != nil {
		return nil, false, err
	}
	return &Dict{seq: newSeq}, true, nil
}

// Merge applies every entry of other to d, in order, last write wins on a
// shared key.
func (d *Dict) Merge(other *Dict) (*Dict, error) {
	out := d
	err := other.ForEach(func(k, v atom.Value) error {
		next, err := out.Set(k, v)
		if err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ForEach walks entries in sorted key order, stopping at the first error.
func (d *Dict) ForEach(visit func(key, value atom.Value) error) error {
	return d.seq.ForEach(func(v atom.Value) error {
		pr, err := pairOf(v)
		if err != nil {
			return err
		}
		return visit(pr.key, pr.value)
	})
}
