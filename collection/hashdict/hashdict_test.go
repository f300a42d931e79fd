package hashdict_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/collection/hashdict"
)

func TestSetGetDelete(t *testing.T) {
	d := hashdict.Empty(nil, "db", "coll")
	d2, err := d.Set(5, atom.Str("five"))
	require.NoError(t, err)
	d3, err := d2.Set(1, atom.Str("one"))
	require.NoError(t, err)
	d4, err := d3.Set(9, atom.Str("nine"))
	require.NoError(t, err)

	require.Equal(t, 3, d4.Len())
	v, ok, err := d4.Get(5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "five", v.Text)

	d5, removed, err := d4.Delete(1)
	require.NoError(t, err)
	require.True(t, removed)
	require.Equal(t, 2, d5.Len())
	_, ok, err = d5.Get(1)
	require.NoError(t, err)
	require.False(t, ok)

	// original untouched
	require.Equal(t, 3, d4.Len())
}

func TestSetReplacesExistingKeyWithoutGrowing(t *testing.T) {
	d := hashdict.Empty(nil, "db", "coll")
	d, _ = d.Set(42, atom.Int(1))
	d2, err := d.Set(42, atom.Int(2))
	require.NoError(t, err)
	require.Equal(t, 1, d2.Len())
	v, _, _ := d2.Get(42)
	n, _ := v.AsInt64()
	require.Equal(t, int64(2), n)
}

func TestGetFirstAndGetLast(t *testing.T) {
	d := hashdict.Empty(nil, "db", "coll")
	var err error
	for _, k := range []int32{7, 3, 19, -4, 11} {
		d, err = d.Set(k, atom.Int(int64(k)))
		require.NoError(t, err)
	}
	firstKey, _, ok, err := d.GetFirst()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(-4), firstKey)

	lastKey, _, ok, err := d.GetLast()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(19), lastKey)
}

func TestForEachWalksInAscendingKeyOrder(t *testing.T) {
	d := hashdict.Empty(nil, "db", "coll")
	var err error
	for _, k := range []int32{40, -10, 0, 25, -1} {
		d, err = d.Set(k, atom.Int(int64(k)))
		require.NoError(t, err)
	}
	var keys []int32
	err = d.ForEach(func(k int32, v atom.Value) error {
		keys = append(keys, k)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []int32{-10, -1, 0, 25, 40}, keys)
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	d := hashdict.Empty(nil, "db", "coll")
	d, _ = d.Set(1, atom.Int(1))
	d2, removed, err := d.Delete(999)
	require.NoError(t, err)
	require.False(t, removed)
	require.Equal(t, d, d2)
}
