package set_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/collection/set"
)

// memStore is a minimal in-memory Writer+Reader, enough to exercise Save and
// Load without a real page store.
type memStore struct {
	streamID string
	records  map[uint64][]byte
	cursor   uint64
}

func newMemStore() *memStore {
	return &memStore{streamID: "stream-1", records: make(map[uint64][]byte)}
}

func (m *memStore) NextPointer() atom.Pointer {
	return atom.Pointer{StreamID: m.streamID, Offset: m.cursor}
}

func (m *memStore) PushBytes(payload []byte) (atom.Pointer, error) {
	ptr := atom.Pointer{StreamID: m.streamID, Offset: m.cursor}
	m.records[m.cursor] = append([]byte(nil), payload...)
	m.cursor += uint64(len(payload)) + 8
	return ptr, nil
}

func (m *memStore) GetBytes(ptr atom.Pointer) ([]byte, error) {
	if ptr.StreamID != m.streamID {
		return nil, fmt.Errorf("unknown stream %q", ptr.StreamID)
	}
	raw, ok := m.records[ptr.Offset]
	if !ok {
		return nil, fmt.Errorf("no record at offset %d", ptr.Offset)
	}
	return raw, nil
}

func TestAddHasRemove(t *testing.T) {
	s := set.Empty(nil, "db", "coll")
	s2, err := s.Add(atom.Str("a"))
	require.NoError(t, err)
	s3, err := s2.Add(atom.Str("b"))
	require.NoError(t, err)

	has, err := s3.Has(atom.Str("a"))
	require.NoError(t, err)
	require.True(t, has)

	n, err := s3.Len()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	s4, removed, err := s3.Remove(atom.Str("a"))
	require.NoError(t, err)
	require.True(t, removed)
	has, err = s4.Has(atom.Str("a"))
	require.NoError(t, err)
	require.False(t, has)

	// original untouched
	has, err = s3.Has(atom.Str("a"))
	require.NoError(t, err)
	require.True(t, has)
}

func TestAddDuplicateIsNoop(t *testing.T) {
	s := set.Empty(nil, "db", "coll")
	s, _ = s.Add(atom.Str("x"))
	s2, err := s.Add(atom.Str("x"))
	require.NoError(t, err)
	n, err := s2.Len()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestRemoveMissingReportsFalse(t *testing.T) {
	s := set.Empty(nil, "db", "coll")
	s2, removed, err := s.Remove(atom.Str("nope"))
	require.NoError(t, err)
	require.False(t, removed)
	n, err := s2.Len()
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

// manyDistinct builds n distinct string members. A collision of the 32-bit
// stable_hash_32 among a few hundred strings is unlikely, so this mostly
// exercises many single-link buckets.
func manyDistinct(n int) []atom.Value {
	out := make([]atom.Value, n)
	for i := 0; i < n; i++ {
		out[i] = atom.Str(fmt.Sprintf("member-%d", i))
	}
	return out
}

func TestSaveAndReloadRoundTrips(t *testing.T) {
	store := newMemStore()
	pool := atom.NewPool()

	s := set.Empty(nil, "db", "coll")
	members := manyDistinct(200)
	var err error
	for _, m := range members {
		s, err = s.Add(m)
		require.NoError(t, err)
	}

	ptr, err := s.Save(store, pool)
	require.NoError(t, err)
	require.False(t, ptr.IsZero())

	ld := atom.NewLoader(store, atom.NewCache())
	reloaded, err := set.FromPointer(ptr, ld, nil, "db", "coll")
	require.NoError(t, err)

	n, err := reloaded.Len()
	require.NoError(t, err)
	require.Equal(t, len(members), n)

	for _, m := range members {
		has, err := reloaded.Has(m)
		require.NoError(t, err)
		require.True(t, has)
	}
}

func TestUnionIntersectionDifference(t *testing.T) {
	a := set.Empty(nil, "db", "coll")
	for _, v := range []string{"1", "2", "3"} {
		a, _ = a.Add(atom.Str(v))
	}
	b := set.Empty(nil, "db", "coll")
	for _, v := range []string{"2", "3", "4"} {
		b, _ = b.Add(atom.Str(v))
	}

	union, err := a.Union(b)
	require.NoError(t, err)
	n, _ := union.Len()
	require.Equal(t, 4, n)

	inter, err := a.Intersection(b)
	require.NoError(t, err)
	n, _ = inter.Len()
	require.Equal(t, 2, n)
	has, _ := inter.Has(atom.Str("2"))
	require.True(t, has)
	has, _ = inter.Has(atom.Str("1"))
	require.False(t, has)

	diff, err := a.Difference(b)
	require.NoError(t, err)
	n, _ = diff.Len()
	require.Equal(t, 1, n)
	has, _ = diff.Has(atom.Str("1"))
	require.True(t, has)
}

func TestConcurrentUpdateRebasesOpLog(t *testing.T) {
	base := set.Empty(nil, "db", "coll")
	base, _ = base.Add(atom.Str("shared"))

	inFlight, err := base.Add(atom.Str("mine"))
	require.NoError(t, err)
	inFlight, removed, err := inFlight.Remove(atom.Str("shared"))
	require.NoError(t, err)
	require.True(t, removed)

	// A concurrent commit advanced the real base to include "theirs" too.
	newerBase, err := base.Add(atom.Str("theirs"))
	require.NoError(t, err)

	rebased, err := inFlight.ConcurrentUpdate(newerBase)
	require.NoError(t, err)

	has, err := rebased.Has(atom.Str("theirs"))
	require.NoError(t, err)
	require.True(t, has, "rebase should keep the concurrently committed member")

	has, err = rebased.Has(atom.Str("mine"))
	require.NoError(t, err)
	require.True(t, has, "rebase should replay this set's own add")

	has, err = rebased.Has(atom.Str("shared"))
	require.NoError(t, err)
	require.False(t, has, "rebase should replay this set's own remove")
}

func TestForEachVisitsEveryMember(t *testing.T) {
	s := set.Empty(nil, "db", "coll")
	members := manyDistinct(50)
	var err error
	for _, m := range members {
		s, err = s.Add(m)
		require.NoError(t, err)
	}
	seen := make(map[string]bool)
	err = s.ForEach(func(v atom.Value) error {
		seen[v.Text] = true
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, len(members), len(seen))
}
