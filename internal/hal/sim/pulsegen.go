// internal/hal/sim/pulsegen.go
package sim

import (
	"context"
	"time"
)

// PulseGenerator drives a simulated counter input with a square wave,
// like a test GPIO looped back onto the counter pin.
type PulseGenerator struct {
	Unit    *PCNT
	Channel uint8
	Hz      float64
	// Width is the pulse width in filter-clock cycles seen by the glitch filter.
	Width uint16
}

// Run emits one rising and one falling edge per period until ctx is done.
func (g *PulseGenerator) Run(ctx context.Context) error {
	if g.Hz <= 0 || g.Unit == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / g.Hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			g.Unit.Edge(g.Channel, true, g.Width)
			g.Unit.Edge(g.Channel, false, g.Width)
		}
	}
}
