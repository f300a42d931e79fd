package txn_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/collection/list"
	"github.com/cuemby/protobase/internal/config"
	"github.com/cuemby/protobase/objectspace"
	"github.com/cuemby/protobase/txn"
)

func smallCfg() *config.Store {
	return &config.Store{
		PageSize:           256,
		CacheCapacity:      2,
		RootFlushInterval:  50 * time.Millisecond,
		WriterPollInterval: 5 * time.Millisecond,
	}
}

func openSpace(t *testing.T) (*objectspace.ObjectSpace, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "space.db")
	s, err := objectspace.Open(path, smallCfg(), nil)
	require.NoError(t, err)
	require.NoError(t, s.CreateDatabase("MyTestDb"))
	return s, path
}

// loadList resolves a root-object Value into a *list.List using the
// space's shared loader.
func loadList(t *testing.T, space *objectspace.ObjectSpace, v atom.Value) *list.List {
	t.Helper()
	l, err := list.FromValue(v, space.Bus(), "MyTestDb", "my_list")
	require.NoError(t, err)
	return l
}

// TestEmptyToListOfTwo is scenario E1: open a fresh space, create a
// database, set a list root, commit, close, reopen, and read it back.
func TestEmptyToListOfTwo(t *testing.T) {
	space, path := openSpace(t)

	tx, err := txn.Begin(space, "MyTestDb")
	require.NoError(t, err)

	l := list.Empty(space.Bus(), "MyTestDb", "my_list")
	l, err = l.AppendLast(atom.Str("hello"))
	require.NoError(t, err)
	l, err = l.AppendLast(atom.Str("world"))
	require.NoError(t, err)
	if _, err := l.Save(space.Writer(), space.Pool()); err != nil {
		require.NoError(t, err)
	}

	require.NoError(t, tx.SetRootObject("my_list", l.AsValue()))
	require.NoError(t, tx.Commit())
	require.NoError(t, space.Close())

	reopened, err := objectspace.Open(path, smallCfg(), nil)
	require.NoError(t, err)
	defer reopened.Close()

	tx2, err := txn.Begin(reopened, "MyTestDb")
	require.NoError(t, err)
	v, ok, err := tx2.GetRootObject("my_list")
	require.NoError(t, err)
	require.True(t, ok)

	reloaded := loadList(t, reopened, v)
	require.Equal(t, 2, reloaded.Len())
	first, err := reloaded.GetAt(0)
	require.NoError(t, err)
	firstText, err := atom.ResolveString(first)
	require.NoError(t, err)
	require.Equal(t, "hello", firstText)
	second, err := reloaded.GetAt(1)
	require.NoError(t, err)
	secondText, err := atom.ResolveString(second)
	require.NoError(t, err)
	require.Equal(t, "world", secondText)
}

func TestWriteNotVisibleBeforeCommit(t *testing.T) {
	space, _ := openSpace(t)

	writer, err := txn.Begin(space, "MyTestDb")
	require.NoError(t, err)
	l := list.Empty(space.Bus(), "MyTestDb", "x")
	l, err = l.AppendLast(atom.Int(1))
	require.NoError(t, err)
	_, err = l.Save(space.Writer(), space.Pool())
	require.NoError(t, err)
	require.NoError(t, writer.SetRootObject("x", l.AsValue()))

	reader, err := txn.Begin(space, "MyTestDb")
	require.NoError(t, err)
	_, ok, err := reader.GetRootObject("x")
	require.NoError(t, err)
	require.False(t, ok, "uncommitted write must not be visible to a concurrently begun transaction")

	require.NoError(t, writer.Commit())

	afterCommit, err := txn.Begin(space, "MyTestDb")
	require.NoError(t, err)
	_, ok, err = afterCommit.GetRootObject("x")
	require.NoError(t, err)
	require.True(t, ok, "a transaction begun after commit must see the new root object")
}

func TestAbortDiscardsStagedWrites(t *testing.T) {
	space, _ := openSpace(t)

	tx, err := txn.Begin(space, "MyTestDb")
	require.NoError(t, err)
	l := list.Empty(space.Bus(), "MyTestDb", "y")
	_, err = l.Save(space.Writer(), space.Pool())
	require.NoError(t, err)
	require.NoError(t, tx.SetRootObject("y", l.AsValue()))
	require.NoError(t, tx.Abort())

	after, err := txn.Begin(space, "MyTestDb")
	require.NoError(t, err)
	_, ok, err := after.GetRootObject("y")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommitAfterAbortFails(t *testing.T) {
	space, _ := openSpace(t)
	tx, err := txn.Begin(space, "MyTestDb")
	require.NoError(t, err)
	require.NoError(t, tx.Abort())
	require.Error(t, tx.Commit())
}

func TestNestedCommitMergesIntoEnclosing(t *testing.T) {
	space, _ := openSpace(t)

	outer, err := txn.Begin(space, "MyTestDb")
	require.NoError(t, err)
	inner, err := outer.BeginNested()
	require.NoError(t, err)

	l := list.Empty(space.Bus(), "MyTestDb", "z")
	_, err = l.Save(space.Writer(), space.Pool())
	require.NoError(t, err)
	require.NoError(t, inner.SetRootObject("z", l.AsValue()))
	require.NoError(t, inner.Commit())

	// A nested commit merges into the enclosing transaction.
	_, ok, err := outer.GetRootObject("z")
	require.NoError(t, err)
	require.True(t, ok, "nested commit should merge its staged write into the enclosing transaction")

	require.NoError(t, outer.Commit())

	verify, err := txn.Begin(space, "MyTestDb")
	require.NoError(t, err)
	_, ok, err = verify.GetRootObject("z")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGetLiteralInternsAcrossTransactions(t *testing.T) {
	space, _ := openSpace(t)

	tx1, err := txn.Begin(space, "MyTestDb")
	require.NoError(t, err)
	lit1, err := tx1.GetLiteral("shared")
	require.NoError(t, err)
	ptr1, err := atom.Save(lit1, space.Writer(), space.Pool())
	require.NoError(t, err)
	require.NoError(t, tx1.Commit())

	tx2, err := txn.Begin(space, "MyTestDb")
	require.NoError(t, err)
	lit2, err := tx2.GetLiteral("shared")
	require.NoError(t, err)
	require.Equal(t, lit1, lit2, "the space-wide literal pool should return the same interned literal")
	ptr2, err := atom.Save(lit2, space.Writer(), space.Pool())
	require.NoError(t, err)
	require.Equal(t, ptr1, ptr2, "an already-saved literal keeps its pointer across transactions")
}

func TestBeginUnknownDatabaseFails(t *testing.T) {
	space, _ := openSpace(t)
	_, err := txn.Begin(space, "NoSuchDb")
	require.Error(t, err)
}

func TestDeleteRootObjectTombstonesOnCommit(t *testing.T) {
	space, _ := openSpace(t)

	tx, err := txn.Begin(space, "MyTestDb")
	require.NoError(t, err)
	l := list.Empty(space.Bus(), "MyTestDb", "w")
	_, err = l.Save(space.Writer(), space.Pool())
	require.NoError(t, err)
	require.NoError(t, tx.SetRootObject("w", l.AsValue()))
	require.NoError(t, tx.Commit())

	tx2, err := txn.Begin(space, "MyTestDb")
	require.NoError(t, err)
	require.NoError(t, tx2.DeleteRootObject("w"))
	_, ok, err := tx2.GetRootObject("w")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, tx2.Commit())

	tx3, err := txn.Begin(space, "MyTestDb")
	require.NoError(t, err)
	_, ok, err = tx3.GetRootObject("w")
	require.NoError(t, err)
	require.False(t, ok)
}
