package u

import (
	"sync"
	"sync/atomic"
	"time"
)

// Debouncer calls F at most once per Timeout no matter how many times
// Trigger() was called in that window
type Debouncer struct {
	Timeout time.Duration
	F       func()

	isDebouncing atomic.Bool
	mu           sync.Mutex
	timer        *time.Timer
	stopped      bool
	// calls of F in progress
	running sync.WaitGroup
}

func NewDebouncer(timeout time.Duration, f func()) *Debouncer {
	return &Debouncer{
		Timeout: timeout,
		F:       f,
	}
}

func (d *Debouncer) run() {
	// set isDebouncing to false before calling F() so that a Trigger()
	// that races with F() schedules another call instead of being lost
	d.isDebouncing.Store(false)
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.running.Add(1)
	d.mu.Unlock()
	defer d.running.Done()
	d.F()
}

// Trigger schedules a call to F after Timeout unless one is already scheduled
func (d *Debouncer) Trigger() {
	didSwap := d.isDebouncing.CompareAndSwap(false, true)
	if !didSwap {
		// already debouncing
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.Timeout <= 0 {
		// no debouncing
		go d.run()
		return
	}
	d.timer = time.AfterFunc(d.Timeout, d.run)
}

// Stop cancels a pending call and waits for a call of F that already
// started. After Stop, Trigger is a no-op.
// Must not be called from F.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.running.Wait()
}
