package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestReal_Fires(t *testing.T) {
	s := NewReal()
	fired := make(chan struct{})

	s.Schedule("a", 10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timer did not fire")
	}

	if s.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", s.Pending())
	}
}

func TestReal_Supersede(t *testing.T) {
	s := NewReal()
	var first, second atomic.Int32

	s.Schedule("a", 20*time.Millisecond, func() { first.Add(1) })
	s.Schedule("a", 20*time.Millisecond, func() { second.Add(1) })

	time.Sleep(100 * time.Millisecond)

	if first.Load() != 0 {
		t.Errorf("superseded timer fired %d times", first.Load())
	}
	if second.Load() != 1 {
		t.Errorf("replacement timer fired %d times, want 1", second.Load())
	}
}

func TestReal_Cancel(t *testing.T) {
	s := NewReal()
	var fired atomic.Int32

	s.Schedule("a", 20*time.Millisecond, func() { fired.Add(1) })
	if !s.Cancel("a") {
		t.Error("Cancel returned false for pending timer")
	}
	if s.Cancel("a") {
		t.Error("Cancel returned true for missing timer")
	}

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("cancelled timer fired")
	}
}

func TestManual_Advance(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var order []string

	m.Schedule("late", 30*time.Second, func() { order = append(order, "late") })
	m.Schedule("early", 5*time.Second, func() { order = append(order, "early") })

	m.Advance(29999 * time.Millisecond)
	if len(order) != 1 || order[0] != "early" {
		t.Fatalf("order = %v, want [early]", order)
	}
	if !m.Scheduled("late") {
		t.Error("late timer should still be pending")
	}

	m.Advance(time.Millisecond)
	if len(order) != 2 || order[1] != "late" {
		t.Fatalf("order = %v, want [early late]", order)
	}
	if m.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", m.Pending())
	}
}

func TestManual_SupersedeAndCancel(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var fired []string

	m.Schedule("k", 10*time.Second, func() { fired = append(fired, "first") })
	m.Advance(5 * time.Second)
	m.Schedule("k", 10*time.Second, func() { fired = append(fired, "second") })

	m.Advance(5 * time.Second)
	if len(fired) != 0 {
		t.Fatalf("fired = %v, want none", fired)
	}

	m.Advance(5 * time.Second)
	if len(fired) != 1 || fired[0] != "second" {
		t.Fatalf("fired = %v, want [second]", fired)
	}

	m.Schedule("k", time.Second, func() { fired = append(fired, "third") })
	m.Cancel("k")
	m.Advance(time.Minute)
	if len(fired) != 1 {
		t.Errorf("cancelled timer fired: %v", fired)
	}
}

func TestManual_CallbackSchedulesDueTimer(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var fired []string

	m.Schedule("a", time.Second, func() {
		fired = append(fired, "a")
		m.Schedule("b", time.Second, func() { fired = append(fired, "b") })
	})

	m.Advance(3 * time.Second)
	if len(fired) != 2 {
		t.Fatalf("fired = %v, want [a b]", fired)
	}
	if got := m.Now(); !got.Equal(time.Unix(3, 0)) {
		t.Errorf("Now = %v, want %v", got, time.Unix(3, 0))
	}
}
