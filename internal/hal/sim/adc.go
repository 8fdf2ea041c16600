// internal/hal/sim/adc.go
package sim

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ADC is a simulated one-shot converter.
type ADC struct {
	mu    sync.Mutex
	codes map[uint8]uint16
	max   uint16
	err   error

	// Conversion is how long a one-shot conversion blocks.
	Conversion time.Duration
}

// NewADC creates a converter with the given resolution in bits (1..16).
func NewADC(bits uint8) *ADC {
	if bits == 0 || bits > 16 {
		bits = 16
	}
	return &ADC{
		codes: make(map[uint8]uint16),
		max:   uint16((uint32(1) << bits) - 1),
	}
}

// Set sets the code channel converts to. Codes above the resolution are clipped.
func (a *ADC) Set(channel uint8, code uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if code > a.max {
		code = a.max
	}
	a.codes[channel] = code
}

// Fail makes every following conversion return err. nil clears it.
func (a *ADC) Fail(err error) {
	a.mu.Lock()
	a.err = err
	a.mu.Unlock()
}

func (a *ADC) ReadOneShot(ctx context.Context, channel uint8) (uint16, error) {
	if a.Conversion > 0 {
		t := time.NewTimer(a.Conversion)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-t.C:
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return 0, a.err
	}
	code, ok := a.codes[channel]
	if !ok {
		return 0, errors.New("sim adc: channel not configured")
	}
	return code, nil
}
