package objectspace_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/internal/config"
	"github.com/cuemby/protobase/objectspace"
)

func smallCfg() *config.Store {
	return &config.Store{
		PageSize:           256,
		CacheCapacity:      2,
		RootFlushInterval:  50 * time.Millisecond,
		WriterPollInterval: 5 * time.Millisecond,
	}
}

func TestCreateRemoveRenameDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.db")
	s, err := objectspace.Open(path, smallCfg(), nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.CreateDatabase("orders"))

	ro, err := s.CurrentRootObject()
	require.NoError(t, err)
	_, ok, err := ro.ObjectRoot().Get(atom.Str("orders"))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.RenameDatabase("orders", "orders2"))
	ro, err = s.CurrentRootObject()
	require.NoError(t, err)
	_, ok, err = ro.ObjectRoot().Get(atom.Str("orders"))
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = ro.ObjectRoot().Get(atom.Str("orders2"))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.RemoveDatabase("orders2"))
	ro, err = s.CurrentRootObject()
	require.NoError(t, err)
	_, ok, err = ro.ObjectRoot().Get(atom.Str("orders2"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCreateDuplicateDatabaseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.db")
	s, err := objectspace.Open(path, smallCfg(), nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.CreateDatabase("a"))
	err = s.CreateDatabase("a")
	require.Error(t, err)
}

func TestRemoveUnknownDatabaseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.db")
	s, err := objectspace.Open(path, smallCfg(), nil)
	require.NoError(t, err)
	defer s.Close()

	err = s.RemoveDatabase("nope")
	require.Error(t, err)
}

func TestRootObjectSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.db")
	s, err := objectspace.Open(path, smallCfg(), nil)
	require.NoError(t, err)
	require.NoError(t, s.CreateDatabase("persisted"))
	require.NoError(t, s.Close())

	reopened, err := objectspace.Open(path, smallCfg(), nil)
	require.NoError(t, err)
	defer reopened.Close()

	ro, err := reopened.CurrentRootObject()
	require.NoError(t, err)
	_, ok, err := ro.ObjectRoot().Get(atom.Str("persisted"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEmptySpaceHasEmptyRootObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.db")
	s, err := objectspace.Open(path, smallCfg(), nil)
	require.NoError(t, err)
	defer s.Close()

	ro, err := s.CurrentRootObject()
	require.NoError(t, err)
	require.Equal(t, 0, ro.ObjectRoot().Len())
	require.Equal(t, 0, ro.LiteralRoot().Len())
}

func TestRootObjectCreatedAtSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "space.db")
	s, err := objectspace.Open(path, smallCfg(), nil)
	require.NoError(t, err)
	require.NoError(t, s.CreateDatabase("orders"))

	before, err := s.CurrentRootObject()
	require.NoError(t, err)
	require.False(t, before.CreatedAt().IsZero())
	require.NoError(t, s.Close())

	reopened, err := objectspace.Open(path, smallCfg(), nil)
	require.NoError(t, err)
	defer reopened.Close()

	after, err := reopened.CurrentRootObject()
	require.NoError(t, err)
	require.True(t, before.CreatedAt().Equal(after.CreatedAt()))
}
