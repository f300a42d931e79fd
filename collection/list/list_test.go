package list_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/collection/list"
)

func values(t *testing.T, l *list.List) []int64 {
	t.Helper()
	vs, err := l.Values()
	require.NoError(t, err)
	out := make([]int64, len(vs))
	for i, v := range vs {
		n, ok := v.AsInt64()
		require.True(t, ok)
		out[i] = n
	}
	return out
}

func buildList(t *testing.T, n int) *list.List {
	t.Helper()
	l := list.Empty(nil, "db", "coll")
	for i := 0; i < n; i++ {
		var err error
		l, err = l.AppendLast(atom.Int(int64(i)))
		require.NoError(t, err)
	}
	return l
}

func TestAppendAndGetAt(t *testing.T) {
	l := buildList(t, 50)
	require.Equal(t, 50, l.Len())
	for i := 0; i < 50; i++ {
		v, err := l.GetAt(i)
		require.NoError(t, err)
		n, _ := v.AsInt64()
		require.Equal(t, int64(i), n)
	}
}

func TestInsertAtShiftsTail(t *testing.T) {
	l := buildList(t, 5) // 0 1 2 3 4
	l2, err := l.InsertAt(2, atom.Int(100))
	require.NoError(t, err)
	require.Equal(t, []int64{0, 1, 100, 2, 3, 4}, values(t, l2))
	// original is untouched
	require.Equal(t, []int64{0, 1, 2, 3, 4}, values(t, l))
}

func TestRemoveAt(t *testing.T) {
	l := buildList(t, 5)
	l2, err := l.RemoveAt(2)
	require.NoError(t, err)
	require.Equal(t, []int64{0, 1, 3, 4}, values(t, l2))
	require.Equal(t, 5, l.Len(), "original list is immutable")
}

func TestSetAt(t *testing.T) {
	l := buildList(t, 5)
	l2, err := l.SetAt(0, atom.Int(999))
	require.NoError(t, err)
	require.Equal(t, []int64{999, 1, 2, 3, 4}, values(t, l2))
	require.Equal(t, []int64{0, 1, 2, 3, 4}, values(t, l))
}

func TestSliceHeadTail(t *testing.T) {
	l := buildList(t, 10)
	mid, err := l.Slice(3, 7)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 4, 5, 6}, values(t, mid))

	head, err := l.Head(3)
	require.NoError(t, err)
	require.Equal(t, []int64{0, 1, 2}, values(t, head))

	tail, err := l.Tail(3)
	require.NoError(t, err)
	require.Equal(t, []int64{7, 8, 9}, values(t, tail))
}

func TestExtend(t *testing.T) {
	a := buildList(t, 3)
	b := buildList(t, 3)
	merged, err := a.Extend(b)
	require.NoError(t, err)
	require.Equal(t, []int64{0, 1, 2, 0, 1, 2}, values(t, merged))
}

func TestOutOfRangeErrors(t *testing.T) {
	l := buildList(t, 3)
	_, err := l.GetAt(3)
	require.Error(t, err)
	_, err = l.GetAt(-1)
	require.Error(t, err)
}

func TestAppendFirst(t *testing.T) {
	l := buildList(t, 3)
	l2, err := l.AppendFirst(atom.Int(-1))
	require.NoError(t, err)
	require.Equal(t, []int64{-1, 0, 1, 2}, values(t, l2))
}
