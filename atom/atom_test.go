package atom_test

import (
	"encoding/binary"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/protobase/atom"
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

// leafAtom is a trivial registered atom used only by these tests.
type leafAtom struct {
	atom.Base
	Name  string
	Count int64
	Tag   string // raw, not pool-interned
}

func init() {
	atom.Register("test.leaf", func() atom.Atom { return &leafAtom{} })
}

func (l *leafAtom) ClassName() string { return "test.leaf" }

func (l *leafAtom) Fields() []atom.Field {
	return []atom.Field{
		{Name: "name", Value: atom.Str(l.Name)},
		{Name: "count", Value: atom.Int(l.Count)},
		{Name: "tag", Value: atom.RawStr(l.Tag)},
	}
}

func (l *leafAtom) LoadFields(fields map[string]atom.Value) error {
	name, err := atom.ResolveString(fields["name"])
	if err != nil {
		return err
	}
	l.Name = name
	if n, ok := fields["count"].AsInt64(); ok {
		l.Count = n
	}
	l.Tag = fields["tag"].Text
	return nil
}

// parentAtom nests a leafAtom by reference, exercising recursive Save/Load.
type parentAtom struct {
	atom.Base
	Child *leafAtom
}

func init() {
	atom.Register("test.parent", func() atom.Atom { return &parentAtom{} })
}

func (p *parentAtom) ClassName() string { return "test.parent" }

func (p *parentAtom) Fields() []atom.Field {
	return []atom.Field{{Name: "child", Value: atom.FromAtom(p.Child)}}
}

func (p *parentAtom) LoadFields(fields map[string]atom.Value) error {
	a, err := fields["child"].Resolve()
	if err != nil {
		return err
	}
	if a == nil {
		return nil
	}
	leaf, ok := a.(*leafAtom)
	if !ok {
		return fmt.Errorf("expected *leafAtom, got %T", a)
	}
	p.Child = leaf
	return nil
}

func TestSaveIsIdempotent(t *testing.T) {
	store := newMemStore()
	pool := atom.NewPool()
	leaf := &leafAtom{Name: "a", Count: 1, Tag: "x"}

	p1, err := atom.Save(leaf, store, pool)
	require.NoError(t, err)
	p2, err := atom.Save(leaf, store, pool)
	require.NoError(t, err)
	require.Equal(t, p1, p2, "saving an already-pointed atom must not rewrite it")
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newMemStore()
	pool := atom.NewPool()
	parent := &parentAtom{Child: &leafAtom{Name: "hello world", Count: 42, Tag: "raw-tag"}}

	ptr, err := atom.Save(parent, store, pool)
	require.NoError(t, err)
	require.False(t, ptr.IsZero())

	cache := atom.NewCache()
	loader := atom.NewLoader(store, cache)
	loaded, err := loader.Load(ptr)
	require.NoError(t, err)

	got, ok := loaded.(*parentAtom)
	require.True(t, ok)
	require.NotNil(t, got.Child)
	require.Equal(t, "hello world", got.Child.Name)
	require.Equal(t, int64(42), got.Child.Count)
	require.Equal(t, "raw-tag", got.Child.Tag)
}

func TestLoaderCachesByPointer(t *testing.T) {
	store := newMemStore()
	pool := atom.NewPool()
	leaf := &leafAtom{Name: "cached", Count: 7}
	ptr, err := atom.Save(leaf, store, pool)
	require.NoError(t, err)

	cache := atom.NewCache()
	loader := atom.NewLoader(store, cache)
	first, err := loader.Load(ptr)
	require.NoError(t, err)
	second, err := loader.Load(ptr)
	require.NoError(t, err)
	require.Same(t, first, second, "repeat Load of the same pointer must return the cached instance")
	require.Equal(t, 2, cache.Len(), "the leaf and its name literal are each cached once")
}

func TestLiteralPoolInternsRepeatedStrings(t *testing.T) {
	store := newMemStore()
	pool := atom.NewPool()
	a := &leafAtom{Name: "shared", Count: 1}
	b := &leafAtom{Name: "shared", Count: 2}

	_, err := atom.Save(a, store, pool)
	require.NoError(t, err)
	_, err = atom.Save(b, store, pool)
	require.NoError(t, err)

	require.Equal(t, pool.Intern("shared").Pointer(), pool.Intern("shared").Pointer())
}

func TestPointerRoundTripsThroughText(t *testing.T) {
	p := atom.Pointer{StreamID: "stream-1", Offset: 128}
	parsed, err := atom.ParsePointer(p.String())
	require.NoError(t, err)
	require.Equal(t, p, parsed)
}

func TestParsePointerEmptyIsZero(t *testing.T) {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], 0)
	parsed, err := atom.ParsePointer(string(buf[:]))
	require.NoError(t, err)
	require.True(t, parsed.IsZero())
}

func TestTimeAndDurationRoundTrip(t *testing.T) {
	store := newMemStore()
	pool := atom.NewPool()

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	leaf := &timedLeaf{When: ts, For: 90 * time.Second}
	ptr, err := atom.Save(leaf, store, pool)
	require.NoError(t, err)

	cache := atom.NewCache()
	loader := atom.NewLoader(store, cache)
	loaded, err := loader.Load(ptr)
	require.NoError(t, err)
	got := loaded.(*timedLeaf)
	require.True(t, ts.Equal(got.When))
	require.Equal(t, 90*time.Second, got.For)
}

type timedLeaf struct {
	atom.Base
	When time.Time
	For  time.Duration
}

func init() {
	atom.Register("test.timed", func() atom.Atom { return &timedLeaf{} })
}

func (l *timedLeaf) ClassName() string { return "test.timed" }
func (l *timedLeaf) Fields() []atom.Field {
	return []atom.Field{
		{Name: "when", Value: atom.Time(l.When)},
		{Name: "for", Value: atom.Dur(l.For)},
	}
}
func (l *timedLeaf) LoadFields(fields map[string]atom.Value) error {
	l.When = fields["when"].Stamp
	l.For = fields["for"].Span
	return nil
}
