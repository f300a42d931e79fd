package ordered_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/collection/ordered"
)

func TestSetGetDelete(t *testing.T) {
	d := ordered.Empty(nil, "db", "coll")
	d2, err := d.Set(atom.Str("b"), atom.Int(2))
	require.NoError(t, err)
	d3, err := d2.Set(atom.Str("a"), atom.Int(1))
	require.NoError(t, err)
	d4, err := d3.Set(atom.Str("c"), atom.Int(3))
	require.NoError(t, err)

	require.Equal(t, 3, d4.Len())
	v, ok, err := d4.Get(atom.Str("a"))
	require.NoError(t, err)
	require.True(t, ok)
	n, _ := v.AsInt64()
	require.Equal(t, int64(1), n)

	d5, removed, err := d4.Delete(atom.Str("b"))
	require.NoError(t, err)
	require.True(t, removed)
	require.Equal(t, 2, d5.Len())
	_, ok, err = d5.Get(atom.Str("b"))
	require.NoError(t, err)
	require.False(t, ok)

	// original untouched
	require.Equal(t, 3, d4.Len())
}

func TestIterationIsSortedByKey(t *testing.T) {
	d := ordered.Empty(nil, "db", "coll")
	var err error
	for _, k := range []string{"zebra", "apple", "mango", "banana"} {
		d, err = d.Set(atom.Str(k), atom.Str(k))
		require.NoError(t, err)
	}
	var keys []string
	err = d.ForEach(func(k, v atom.Value) error {
		keys = append(keys, k.Text)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"apple", "banana", "mango", "zebra"}, keys)
}

func TestCrossTypeKeyOrdering(t *testing.T) {
	d := ordered.Empty(nil, "db", "coll")
	var err error
	d, err = d.Set(atom.Bool(true), atom.Str("bool-true"))
	require.NoError(t, err)
	d, err = d.Set(atom.Int(5), atom.Str("num-5"))
	require.NoError(t, err)
	d, err = d.Set(atom.Str("x"), atom.Str("str-x"))
	require.NoError(t, err)
	d, err = d.Set(atom.Bool(false), atom.Str("bool-false"))
	require.NoError(t, err)

	var order []string
	err = d.ForEach(func(k, v atom.Value) error {
		order = append(order, v.Text)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"bool-false", "bool-true", "num-5", "str-x"}, order)
}

func TestMerge(t *testing.T) {
	a := ordered.Empty(nil, "db", "coll")
	a, _ = a.Set(atom.Str("a"), atom.Int(1))
	a, _ = a.Set(atom.Str("b"), atom.Int(2))

	b := ordered.Empty(nil, "db", "coll")
	b, _ = b.Set(atom.Str("b"), atom.Int(20))
	b, _ = b.Set(atom.Str("c"), atom.Int(3))

	merged, err := a.Merge(b)
	require.NoError(t, err)
	require.Equal(t, 3, merged.Len())
	v, _, err := merged.Get(atom.Str("b"))
	require.NoError(t, err)
	n, _ := v.AsInt64()
	require.Equal(t, int64(20), n, "merge should take the incoming side's value on conflict")
}

func TestSetReplacesExistingKeyWithoutGrowing(t *testing.T) {
	d := ordered.Empty(nil, "db", "coll")
	d, _ = d.Set(atom.Str("k"), atom.Int(1))
	d2, err := d.Set(atom.Str("k"), atom.Int(2))
	require.NoError(t, err)
	require.Equal(t, 1, d2.Len())
	v, _, _ := d2.Get(atom.Str("k"))
	n, _ := v.AsInt64()
	require.Equal(t, int64(2), n)
}
