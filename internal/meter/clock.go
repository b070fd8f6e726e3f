package meter

import (
	"sync"
	"time"
)

// TickFunc is invoked on every clock tick with the configured interval. Returning
// false stops the schedule from inside the tick, used when the session a tick
// belongs to has disappeared between fires.
type TickFunc func(interval time.Duration) bool

// Handle is an owned tick registration. Cancel is synchronous: once it returns no
// tick callback is running or will ever run again.
type Handle struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Cancel halts the schedule and waits for any in-flight tick to finish.
func (h *Handle) Cancel() {
	h.once.Do(func() { close(h.stop) })
	<-h.done
}

// Clock produces periodic ticks for running sessions.
type Clock struct {
	interval time.Duration
}

// NewClock returns a clock firing at the given interval.
func NewClock(interval time.Duration) *Clock {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Clock{interval: interval}
}

// Interval returns the tick interval.
func (c *Clock) Interval() time.Duration {
	return c.interval
}

// Schedule starts invoking fn every interval until the returned handle is cancelled
// or fn returns false.
func (c *Clock) Schedule(fn TickFunc) *Handle {
	h := &Handle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		defer close(h.done)

		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				// Cancellation wins over a tick that queued up concurrently.
				select {
				case <-h.stop:
					return
				default:
				}
				if !fn(c.interval) {
					return
				}
			}
		}
	}()

	return h
}
