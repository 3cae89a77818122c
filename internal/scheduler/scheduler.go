// Package scheduler provides keyed, cancellable timers.
//
// Scheduling a key that already has a pending timer replaces it, so at most
// one timer per key is ever outstanding. Manual drives timers from a virtual
// clock for deterministic tests.
package scheduler

import (
	"sync"
	"time"
)

// Scheduler runs callbacks after a delay, addressed by key.
type Scheduler interface {
	// Schedule runs fn after delay, superseding any pending timer for key.
	Schedule(key string, delay time.Duration, fn func())

	// Cancel stops the pending timer for key. It reports whether one was pending.
	Cancel(key string) bool
}

type realEntry struct {
	timer *time.Timer
}

// Real implements Scheduler on top of time.AfterFunc.
type Real struct {
	mu      sync.Mutex
	entries map[string]*realEntry
}

// NewReal creates a wall-clock scheduler.
func NewReal() *Real {
	return &Real{entries: make(map[string]*realEntry)}
}

// Schedule runs fn after delay, superseding any pending timer for key.
func (r *Real) Schedule(key string, delay time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.entries[key]; ok {
		prev.timer.Stop()
	}

	entry := &realEntry{}
	entry.timer = time.AfterFunc(delay, func() {
		r.mu.Lock()
		current, ok := r.entries[key]
		if !ok || current != entry {
			// Superseded or cancelled after the timer already fired.
			r.mu.Unlock()
			return
		}
		delete(r.entries, key)
		r.mu.Unlock()

		fn()
	})
	r.entries[key] = entry
}

// Cancel stops the pending timer for key.
func (r *Real) Cancel(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(r.entries, key)
	return true
}

// Pending returns the number of outstanding timers.
func (r *Real) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
