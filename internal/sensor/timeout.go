// internal/sensor/timeout.go
package sensor

import (
	"context"
	"sync/atomic"
	"time"
)

// guarded bounds how long one acquisition may block the cycle.
type guarded struct {
	inner    Adapter
	timeout  time.Duration
	inflight atomic.Bool
}

type acquireResult struct {
	r   Reading
	err error
}

// WithTimeout wraps a so Acquire returns ErrReadTimeout after d.
//
// A timed-out read keeps running in the background; until it returns, further
// Acquire calls fail with ErrBusy instead of starting a second transaction on
// the same peripheral. d <= 0 returns a unchanged.
func WithTimeout(a Adapter, d time.Duration) Adapter {
	if d <= 0 {
		return a
	}
	return &guarded{inner: a, timeout: d}
}

func (g *guarded) Field() Field { return g.inner.Field() }

func (g *guarded) Acquire(ctx context.Context) (Reading, error) {
	if !g.inflight.CompareAndSwap(false, true) {
		return Reading{}, fail(g.Field(), ErrBusy)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan acquireResult, 1)
	go func() {
		r, err := g.inner.Acquire(ctx)
		g.inflight.Store(false)
		done <- acquireResult{r: r, err: err}
	}()

	select {
	case res := <-done:
		return res.r, res.err
	case <-ctx.Done():
		return Reading{}, fail(g.Field(), ErrReadTimeout)
	}
}

// Reset forwards to the wrapped adapter when it accumulates.
func (g *guarded) Reset() error {
	if r, ok := g.inner.(Resetter); ok {
		return r.Reset()
	}
	return nil
}
