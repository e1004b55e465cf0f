package explore

import (
	"sync"
	"time"
)

// Stopper is the part of *time.Timer the debouncer needs.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f after d, like time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Stopper

func realAfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Debouncer runs the last triggered action once triggers have been quiet for
// the window. A zero window runs actions immediately.
type Debouncer struct {
	window time.Duration
	after  AfterFunc

	mu    sync.Mutex
	timer Stopper
	seq   uint64
}

// NewDebouncer creates a trailing debouncer. after may be nil.
func NewDebouncer(window time.Duration, after AfterFunc) *Debouncer {
	if after == nil {
		after = realAfterFunc
	}
	return &Debouncer{window: window, after: after}
}

// Trigger (re)arms the single pending timer with fn.
func (d *Debouncer) Trigger(fn func()) {
	if d.window <= 0 {
		fn()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = d.after(d.window, func() {
		d.mu.Lock()
		// A timer that fired while being replaced must not run.
		if seq != d.seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending action, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

// Pending reports whether an action is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
