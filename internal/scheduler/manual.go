package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by a virtual clock. Timers only fire from
// Advance, on the caller's goroutine, in deadline order.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	entries map[string]*manualEntry
}

type manualEntry struct {
	key string
	at  time.Time
	seq uint64
	fn  func()
}

// NewManual creates a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{
		now:     start,
		entries: make(map[string]*manualEntry),
	}
}

// Now returns the current virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Schedule registers fn to run once the clock has advanced by delay.
func (m *Manual) Schedule(key string, delay time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	m.entries[key] = &manualEntry{
		key: key,
		at:  m.now.Add(delay),
		seq: m.seq,
		fn:  fn,
	}
}

// Cancel removes the pending timer for key.
func (m *Manual) Cancel(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; !ok {
		return false
	}
	delete(m.entries, key)
	return true
}

// Advance moves the clock forward by d and runs every timer that is due.
// Callbacks run without the lock held and may schedule new timers; those
// fire in the same call if they are due as well.
func (m *Manual) Advance(d time.Duration) time.Time {
	if d < 0 {
		d = 0
	}

	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var due []*manualEntry
		for _, e := range m.entries {
			if !e.at.After(target) {
				due = append(due, e)
			}
		}
		if len(due) == 0 {
			m.now = target
			m.mu.Unlock()
			return target
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at.Equal(due[j].at) {
				return due[i].seq < due[j].seq
			}
			return due[i].at.Before(due[j].at)
		})
		next := due[0]
		delete(m.entries, next.key)
		m.now = next.at
		m.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of scheduled timers.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Scheduled reports whether key has a pending timer.
func (m *Manual) Scheduled(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}
