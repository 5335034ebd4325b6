// Package scheduler defers callbacks so that views never touch their own
// state from timer goroutines. Callbacks always run on the host's loop.
package scheduler

import (
	"sync/atomic"
	"time"
)

// Scheduler defers fn by at least d.
type Scheduler interface {
	After(d time.Duration, fn func()) *Timer
}

const (
	statePending int32 = iota
	stateFired
	stateCanceled
)

// Timer is the handle for one scheduled callback.
type Timer struct {
	state  atomic.Int32
	stop   func() bool
	onDone func()
}

// Cancel prevents the callback from running. It reports whether the timer was
// still pending. Calling Cancel on a nil or finished timer is a no-op.
func (t *Timer) Cancel() bool {
	if t == nil || !t.state.CompareAndSwap(statePending, stateCanceled) {
		return false
	}
	if t.stop != nil {
		t.stop()
	}
	if t.onDone != nil {
		t.onDone()
	}
	return true
}

// Pending reports whether the callback has neither run nor been canceled.
func (t *Timer) Pending() bool {
	return t != nil && t.state.Load() == statePending
}

// claim transitions the timer to fired; a false result means the callback must not run.
func (t *Timer) claim() bool {
	if !t.state.CompareAndSwap(statePending, stateFired) {
		return false
	}
	if t.onDone != nil {
		t.onDone()
	}
	return true
}
