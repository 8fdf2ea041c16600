// internal/sensor/pulse.go
package sensor

import (
	"context"
	"errors"
	"fmt"

	"github.com/tamzrod/can-daq-node/internal/hal"
)

// Pulse counter channel roles.
const (
	pulseSignalChannel uint8 = 0
	pulseHoldChannel   uint8 = 1
)

// PulseConfig is fixed at start-up.
type PulseConfig struct {
	HighLimit uint16
	// FilterWindow is the requested glitch filter in filter-clock cycles.
	// Requests above the unit's maximum are clamped.
	FilterWindow uint32
	// CountFalling counts falling edges instead of rising ones.
	CountFalling bool
}

// PulseCounter exposes a hardware pulse-counter unit as "edges seen this cycle".
//
// The unit accumulates on its own between Resume and Reset. Acquire only reads;
// Reset is called by the scheduler once per cycle after the read.
type PulseCounter struct {
	unit   hal.PulseUnit
	limit  uint16
	window uint16
}

// ClampFilter limits a requested filter window to the hardware maximum.
func ClampFilter(requested uint32, max uint16) uint16 {
	if requested > uint32(max) {
		return max
	}
	return uint16(requested)
}

// NewPulseCounter configures and arms unit.
func NewPulseCounter(unit hal.PulseUnit, cfg PulseConfig) (*PulseCounter, error) {
	if cfg.HighLimit == 0 {
		return nil, errors.New("pulse counter: high limit must be > 0")
	}

	p := &PulseCounter{
		unit:   unit,
		limit:  cfg.HighLimit,
		window: ClampFilter(cfg.FilterWindow, unit.FilterMax()),
	}

	rising, falling := hal.EdgeIncrement, hal.EdgeHold
	if cfg.CountFalling {
		rising, falling = hal.EdgeHold, hal.EdgeIncrement
	}

	steps := []struct {
		what string
		fn   func() error
	}{
		{"set high limit", func() error { return unit.SetHighLimit(p.limit) }},
		{"set filter", func() error { return unit.SetFilter(p.window) }},
		{"bind signal channel", func() error { return unit.SetChannelMode(pulseSignalChannel, rising, falling) }},
		{"bind hold channel", func() error { return unit.SetChannelMode(pulseHoldChannel, hal.EdgeHold, hal.EdgeHold) }},
		{"clear", unit.Clear},
		{"resume", unit.Resume},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return nil, fmt.Errorf("pulse counter: %s: %w", s.what, err)
		}
	}
	return p, nil
}

func (p *PulseCounter) Field() Field { return FieldPulses }

// FilterWindow is the filter width actually programmed.
func (p *PulseCounter) FilterWindow() uint16 { return p.window }

func (p *PulseCounter) HighLimit() uint16 { return p.limit }

func (p *PulseCounter) Acquire(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, fail(FieldPulses, err)
	}
	n, err := p.unit.Count()
	if err != nil {
		return Reading{}, fail(FieldPulses, err)
	}
	if n > p.limit {
		// Hardware must saturate; a count past the ceiling means it wrapped or misreported.
		return Reading{}, fail(FieldPulses, fmt.Errorf("count %d above high limit %d", n, p.limit))
	}
	return Reading{Code: n, Saturated: n == p.limit}, nil
}

// Reset clears the accumulator for the next cycle.
func (p *PulseCounter) Reset() error {
	return p.unit.Clear()
}
