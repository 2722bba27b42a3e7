package launchstore

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForCalls(t *testing.T, calls *atomic.Int32, atLeast int32) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < atLeast {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least %d notifications, got %d", atLeast, calls.Load())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatcherSeesInsertAndUpdate(t *testing.T) {
	s := newTestStore(t)
	w, err := NewWatcher(s.Path(), 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	var calls atomic.Int32
	w.Subscribe(func() {
		calls.Add(1)
	})

	// new record, database file is replaced
	require.NoError(t, s.Add("firefox", time.Unix(1000, 0)))
	waitForCalls(t, &calls, 1)

	// in-place update through the mapping
	n := calls.Load()
	require.NoError(t, s.Add("firefox", time.Unix(2000, 0)))
	waitForCalls(t, &calls, n+1)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	s := newTestStore(t)
	w, err := NewWatcher(s.Path(), 10*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	var calls atomic.Int32
	w.Subscribe(func() {
		calls.Add(1)
	})
	other := filepath.Join(filepath.Dir(s.Path()), "other.txt")
	require.NoError(t, os.WriteFile(other, []byte("hello"), 0644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcherUnsubscribe(t *testing.T) {
	s := newTestStore(t)
	w, err := s.Watch()
	require.NoError(t, err)

	var calls atomic.Int32
	unsub := w.Subscribe(func() {
		calls.Add(1)
	})
	unsub()
	require.NoError(t, s.Add("firefox", time.Unix(1000, 0)))
	time.Sleep(2 * DefaultWatchDebounce)
	assert.Equal(t, int32(0), calls.Load())
	require.NoError(t, w.Close())
}

func TestWatcherCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", DefaultFileName)
	w, err := NewWatcher(path, DefaultWatchDebounce)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestWatcherCloseWaitsForSubscribers(t *testing.T) {
	s := newTestStore(t)
	w, err := NewWatcher(s.Path(), time.Millisecond)
	require.NoError(t, err)

	started := make(chan struct{}, 1)
	var inSubscriber, callsAfterClose atomic.Int32
	var closed atomic.Bool
	w.Subscribe(func() {
		if closed.Load() {
			callsAfterClose.Add(1)
		}
		inSubscriber.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(100 * time.Millisecond)
		inSubscriber.Add(-1)
	})
	require.NoError(t, s.Add("firefox", time.Unix(1000, 0)))
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber not called")
	}

	require.NoError(t, w.Close())
	closed.Store(true)
	assert.Equal(t, int32(0), inSubscriber.Load())
	require.NoError(t, s.Add("gedit", time.Unix(1500, 0)))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), callsAfterClose.Load())
}
