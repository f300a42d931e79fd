package pagestore_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/internal/config"
	"github.com/cuemby/protobase/pagestore"
)

func smallCfg() *config.Store {
	return &config.Store{
		PageSize:           256,
		CacheCapacity:      2,
		RootFlushInterval:  50 * time.Millisecond,
		WriterPollInterval: 5 * time.Millisecond,
	}
}

func TestPushAndGetBytesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := pagestore.Open(path, smallCfg())
	require.NoError(t, err)
	defer s.Close()

	payload := []byte("hello, protobase")
	ptr, err := s.PushBytes(payload)
	require.NoError(t, err)

	got, err := s.GetBytes(ptr)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestRecordsCanStraddlePages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := pagestore.Open(path, smallCfg())
	require.NoError(t, err)
	defer s.Close()

	// page size is 256; this payload plus its 8-byte header will not fit in
	// one page from an arbitrary starting offset.
	payload := make([]byte, 500)
	for i := range payload {
		payload[i] = byte(i)
	}
	ptr, err := s.PushBytes(payload)
	require.NoError(t, err)

	got, err := s.GetBytes(ptr)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestReopenRecoversPreviouslyWrittenRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := pagestore.Open(path, smallCfg())
	require.NoError(t, err)

	var ptrs []atom.Pointer
	var payloads [][]byte
	for i := 0; i < 20; i++ {
		ptr, err := s.PushBytes([]byte("record-" + string(rune('a'+i))))
		require.NoError(t, err)
		b, err := s.GetBytes(ptr)
		require.NoError(t, err)
		ptrs = append(ptrs, ptr)
		payloads = append(payloads, b)
	}
	// The reopened store recovers its stream identity from the root slot.
	s.SetRoot(ptrs[len(ptrs)-1])
	require.NoError(t, s.Close())

	reopened, err := pagestore.Open(path, smallCfg())
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, 20, len(ptrs))
	for i, ptr := range ptrs {
		got, err := reopened.GetBytes(ptr)
		require.NoError(t, err)
		require.Equal(t, payloads[i], got)
	}
}

func TestRootFlushIsDebounced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	cfg := smallCfg()
	cfg.RootFlushInterval = 60 * time.Millisecond
	cfg.WriterPollInterval = 5 * time.Millisecond
	s, err := pagestore.Open(path, cfg)
	require.NoError(t, err)
	defer s.Close()

	ptr, err := s.PushBytes([]byte("root payload"))
	require.NoError(t, err)
	s.SetRoot(ptr)

	require.Eventually(t, func() bool {
		return !s.Stats().LastRootFlush.IsZero()
	}, 500*time.Millisecond, 5*time.Millisecond, "root should flush once the store goes quiet")
}

func TestRootPersistsAcrossReopenAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	s, err := pagestore.Open(path, smallCfg())
	require.NoError(t, err)

	ptr, err := s.PushBytes([]byte("payload"))
	require.NoError(t, err)
	s.SetRoot(ptr)
	require.NoError(t, s.Close())

	reopened, err := pagestore.Open(path, smallCfg())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetBytes(reopened.Root())
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got)
}
