package u

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

func TestDebouncerCollapsesBursts(t *testing.T) {
	var n atomic.Int32
	done := make(chan struct{}, 4)
	d := NewDebouncer(50*time.Millisecond, func() {
		n.Add(1)
		done <- struct{}{}
	})
	for i := 0; i < 10; i++ {
		d.Trigger()
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced function not called")
	}
	// a burst after the call schedules another one
	d.Trigger()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second call not made")
	}
	assert.Equal(t, int32(2), n.Load())
}

func TestDebouncerStop(t *testing.T) {
	var n atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { n.Add(1) })
	d.Trigger()
	d.Stop()
	d.Trigger()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), n.Load())
}

func TestDebouncerStopWaitsForCall(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	d := NewDebouncer(time.Millisecond, func() {
		close(started)
		<-release
		finished.Store(true)
	})
	d.Trigger()
	<-started

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while F was running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop didn't return")
	}
	assert.True(t, finished.Load())
}
