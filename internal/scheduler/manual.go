package scheduler

import "time"

type manualEntry struct {
	at    time.Time
	seq   int
	timer *Timer
	fn    func()
}

// Manual is a virtual clock. Callbacks only run when the clock is advanced.
// It is not safe for concurrent use.
type Manual struct {
	now     time.Time
	seq     int
	entries []*manualEntry
}

// NewManual starts the virtual clock at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	return m.now
}

// After registers fn at now+d.
func (m *Manual) After(d time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	t := &Timer{}
	m.seq++
	m.entries = append(m.entries, &manualEntry{at: m.now.Add(d), seq: m.seq, timer: t, fn: fn})
	return t
}

// Advance moves the clock forward by d, running every callback due on the way
// in time order. Callbacks scheduled while advancing run too if they fall due.
func (m *Manual) Advance(d time.Duration) int {
	target := m.now.Add(d)
	ran := 0
	for {
		next := m.next()
		if next == nil || next.at.After(target) {
			break
		}
		m.fire(next)
		ran++
	}
	m.now = target
	return ran
}

// RunNext jumps to the earliest pending callback and runs it.
func (m *Manual) RunNext() bool {
	next := m.next()
	if next == nil {
		return false
	}
	m.fire(next)
	return true
}

// RunAll runs pending callbacks until none remain or limit is reached.
func (m *Manual) RunAll(limit int) int {
	ran := 0
	for ran < limit && m.RunNext() {
		ran++
	}
	return ran
}

// Pending counts callbacks that are still scheduled.
func (m *Manual) Pending() int {
	m.compact()
	return len(m.entries)
}

func (m *Manual) next() *manualEntry {
	m.compact()
	var best *manualEntry
	for _, e := range m.entries {
		if best == nil || e.at.Before(best.at) || (e.at.Equal(best.at) && e.seq < best.seq) {
			best = e
		}
	}
	return best
}

func (m *Manual) fire(e *manualEntry) {
	for i, cur := range m.entries {
		if cur == e {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	if e.at.After(m.now) {
		m.now = e.at
	}
	if e.timer.claim() {
		e.fn()
	}
}

func (m *Manual) compact() {
	live := m.entries[:0]
	for _, e := range m.entries {
		if e.timer.Pending() {
			live = append(live, e)
		}
	}
	for i := len(live); i < len(m.entries); i++ {
		m.entries[i] = nil
	}
	m.entries = live
}
