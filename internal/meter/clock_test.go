package meter

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestClockTicksUntilCancelled(t *testing.T) {
	clock := NewClock(5 * time.Millisecond)

	var ticks atomic.Int64
	h := clock.Schedule(func(interval time.Duration) bool {
		if interval != 5*time.Millisecond {
			t.Errorf("unexpected interval %s", interval)
		}
		ticks.Add(1)
		return true
	})

	waitFor(t, time.Second, func() bool { return ticks.Load() >= 3 })

	h.Cancel()
	after := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	if ticks.Load() != after {
		t.Fatalf("tick fired after cancel: %d -> %d", after, ticks.Load())
	}
}

func TestClockCancelIsSynchronous(t *testing.T) {
	clock := NewClock(5 * time.Millisecond)

	var inFlight atomic.Bool
	h := clock.Schedule(func(time.Duration) bool {
		inFlight.Store(true)
		time.Sleep(2 * time.Millisecond)
		inFlight.Store(false)
		return true
	})

	time.Sleep(20 * time.Millisecond)
	h.Cancel()
	if inFlight.Load() {
		t.Fatal("cancel returned while a tick was still running")
	}
}

func TestClockStopsWhenTickReturnsFalse(t *testing.T) {
	clock := NewClock(5 * time.Millisecond)

	var ticks atomic.Int64
	h := clock.Schedule(func(time.Duration) bool {
		ticks.Add(1)
		return false
	})

	waitFor(t, time.Second, func() bool { return ticks.Load() == 1 })
	time.Sleep(30 * time.Millisecond)
	if ticks.Load() != 1 {
		t.Fatalf("expected exactly 1 tick, got %d", ticks.Load())
	}

	// Cancel after self-stop must not hang.
	done := make(chan struct{})
	go func() {
		h.Cancel()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cancel hung after self-stop")
	}
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
