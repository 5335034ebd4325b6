package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a callback ready to run on the host loop.
type Task struct {
	timer *Timer
	fn    func()
}

// Run executes the callback unless its timer was canceled after it was queued.
func (t Task) Run() {
	if t.timer != nil && !t.timer.claim() {
		return
	}
	t.fn()
}

// Queue schedules callbacks on real timers and hands them to a single consumer
// through a channel.
type Queue struct {
	tasks   chan Task
	done    chan struct{}
	once    sync.Once
	pending atomic.Int64
}

// NewQueue creates a queue with the given channel buffer.
func NewQueue(buffer int) *Queue {
	if buffer < 0 {
		buffer = 0
	}
	return &Queue{
		tasks: make(chan Task, buffer),
		done:  make(chan struct{}),
	}
}

// After schedules fn to be delivered after d.
func (q *Queue) After(d time.Duration, fn func()) *Timer {
	t := &Timer{}
	q.pending.Add(1)
	t.onDone = func() { q.pending.Add(-1) }
	timer := time.AfterFunc(d, func() {
		q.deliver(Task{timer: t, fn: fn})
	})
	t.stop = timer.Stop
	return t
}

// Post enqueues fn for the next loop iteration without a timer.
func (q *Queue) Post(fn func()) {
	go q.deliver(Task{fn: fn})
}

// Do runs fn on the loop and waits for it to finish. It returns ctx.Err() if
// the loop does not pick it up in time.
func (q *Queue) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := Task{fn: func() {
		defer close(finished)
		fn()
	}}
	select {
	case q.tasks <- task:
	case <-q.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) deliver(task Task) {
	select {
	case q.tasks <- task:
	case <-q.done:
	}
}

// Tasks exposes the delivery channel for hosts that run their own loop.
func (q *Queue) Tasks() <-chan Task {
	return q.tasks
}

// Run drains tasks until ctx is done or the queue is closed.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return nil
		case task := <-q.tasks:
			task.Run()
		}
	}
}

// Pending counts timers that have neither fired nor been canceled.
func (q *Queue) Pending() int {
	return int(q.pending.Load())
}

// Close stops delivery. Timers that fire afterwards are dropped.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}
