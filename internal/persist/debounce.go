// Package persist provides the persistence plumbing shared by both
// indexes: a clock-parameterized write debouncer, atomic file writes,
// and the single-writer process lock.
package persist

import (
	"sync"
	"time"
)

// Timer is the armed-callback handle returned by a Clock.
type Timer interface {
	// Stop cancels the timer; it reports whether the callback was
	// prevented from running.
	Stop() bool
}

// Clock schedules deferred callbacks. Production code uses RealClock;
// tests substitute a fake so debounce behavior is verified without
// sleeping.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by the runtime timer.
func RealClock() Clock {
	return realClock{}
}

// DefaultWindow is the write-coalescing window: rapid index mutations
// within one window produce a single snapshot write.
const DefaultWindow = time.Second

// Debouncer coalesces Arm calls into one deferred run of fn. The first
// Arm after an idle period schedules fn one window later; further Arms
// inside the window are no-ops, so a mutation burst costs one write and
// the snapshot is never more than one window stale. Runs of fn are
// serialized: a Flush during a timer-fired run waits for it.
type Debouncer struct {
	window time.Duration
	clock  Clock
	fn     func()

	mu    sync.Mutex
	timer Timer

	runMu sync.Mutex
}

// NewDebouncer creates a debouncer around fn. A window <= 0 uses
// DefaultWindow; a nil clock uses RealClock.
func NewDebouncer(window time.Duration, clock Clock, fn func()) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = RealClock()
	}
	return &Debouncer{window: window, clock: clock, fn: fn}
}

// Arm schedules a run of fn one window from now unless one is already
// scheduled.
func (d *Debouncer) Arm() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		return
	}
	d.timer = d.clock.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	d.mu.Unlock()

	d.runMu.Lock()
	defer d.runMu.Unlock()
	d.fn()
}

// Cancel drops any scheduled run without executing fn.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Flush cancels any scheduled run and executes fn now. Used at shutdown
// so a pending snapshot is not lost.
func (d *Debouncer) Flush() {
	d.Cancel()
	d.runMu.Lock()
	defer d.runMu.Unlock()
	d.fn()
}
