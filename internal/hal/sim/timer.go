// internal/hal/sim/timer.go
package sim

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Timer is a software periodic timer with fixed boundaries at start + k*period.
// It stands in for a hardware timer group on hosts without one.
type Timer struct {
	mu     sync.Mutex
	start  time.Time
	period time.Duration
	fired  uint64 // boundaries consumed so far
	armed  bool
}

func NewTimer() *Timer {
	return &Timer{}
}

func (t *Timer) Start(period time.Duration) error {
	if period <= 0 {
		return errors.New("sim timer: period must be > 0")
	}
	t.mu.Lock()
	t.start = time.Now()
	t.period = period
	t.fired = 0
	t.armed = true
	t.mu.Unlock()
	return nil
}

func (t *Timer) Stop() error {
	t.mu.Lock()
	t.armed = false
	t.mu.Unlock()
	return nil
}

func (t *Timer) Wait(ctx context.Context) (uint64, error) {
	t.mu.Lock()
	if !t.armed {
		t.mu.Unlock()
		return 0, errors.New("sim timer: not started")
	}
	start, period, fired := t.start, t.period, t.fired
	t.mu.Unlock()

	passed := uint64(time.Since(start) / period)
	if passed > fired {
		t.consume(passed)
		return passed - fired, nil
	}

	next := start.Add(time.Duration(fired+1) * period)
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
	}
	t.consume(fired + 1)
	return 1, nil
}

func (t *Timer) consume(n uint64) {
	t.mu.Lock()
	if n > t.fired {
		t.fired = n
	}
	t.mu.Unlock()
}
