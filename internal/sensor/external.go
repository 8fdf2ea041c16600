// internal/sensor/external.go
package sensor

import (
	"context"
	"errors"
	"sync"

	"github.com/tamzrod/can-daq-node/internal/hal"
)

// External reads a 16-bit code from an external converter over SPI.
//
// The adapter owns the chip-select line. A transaction is CS assert, two byte
// reads (high byte first), CS release. The mutex keeps the line exclusive even
// if acquisitions are ever issued from more than one goroutine.
type External struct {
	mu         sync.Mutex
	spi        hal.SPI
	cs         hal.Pin
	activeHigh bool
}

// NewExternal takes ownership of spi and cs and parks cs released.
func NewExternal(spi hal.SPI, cs hal.Pin, activeHigh bool) (*External, error) {
	e := &External{spi: spi, cs: cs, activeHigh: activeHigh}
	if err := cs.Set(!activeHigh); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *External) Field() Field { return FieldExternal }

func (e *External) Acquire(ctx context.Context) (r Reading, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.cs.Set(e.activeHigh); err != nil {
		return Reading{}, fail(FieldExternal, err)
	}
	defer func() {
		// CS is released on every path, including failed reads.
		if rerr := e.cs.Set(!e.activeHigh); rerr != nil && err == nil {
			r, err = Reading{}, fail(FieldExternal, rerr)
		}
	}()

	hi, err := e.spi.Shift(ctx)
	if err != nil {
		return Reading{}, fail(FieldExternal, err)
	}
	lo, err := e.spi.Shift(ctx)
	if err != nil {
		return Reading{}, fail(FieldExternal, errors.Join(errors.New("low byte"), err))
	}
	return Reading{Code: uint16(hi)<<8 | uint16(lo)}, nil
}
