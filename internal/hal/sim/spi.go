// internal/hal/sim/spi.go
package sim

import (
	"context"
	"errors"
	"sync"
)

// Pin is a simulated output line.
type Pin struct {
	mu       sync.Mutex
	high     bool
	toggles  int
	onChange func(high bool)
}

func NewPin(high bool) *Pin {
	return &Pin{high: high}
}

func (p *Pin) Set(high bool) error {
	p.mu.Lock()
	changed := p.high != high
	p.high = high
	if changed {
		p.toggles++
	}
	fn := p.onChange
	p.mu.Unlock()

	if changed && fn != nil {
		fn(high)
	}
	return nil
}

func (p *Pin) High() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.high
}

// Toggles counts level changes since creation.
func (p *Pin) Toggles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.toggles
}

func (p *Pin) watch(fn func(high bool)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// ErrNotSelected is returned when the converter is clocked with chip-select released.
var ErrNotSelected = errors.New("sim spi: chip select not asserted")

// SPIConverter simulates an external converter behind an active-low chip select.
// Each transaction shifts out the code high byte first; releasing chip select
// rewinds the shift register.
type SPIConverter struct {
	cs *Pin

	mu   sync.Mutex
	code uint16
	pos  int
	err  error
}

func NewSPIConverter(cs *Pin) *SPIConverter {
	c := &SPIConverter{cs: cs}
	cs.watch(func(high bool) {
		if high {
			c.mu.Lock()
			c.pos = 0
			c.mu.Unlock()
		}
	})
	return c
}

func (c *SPIConverter) SetCode(code uint16) {
	c.mu.Lock()
	c.code = code
	c.mu.Unlock()
}

// Fail makes every following read return err. nil clears it.
func (c *SPIConverter) Fail(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *SPIConverter) Shift(ctx context.Context) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if c.cs.High() {
		return 0, ErrNotSelected
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}

	var b byte
	switch c.pos {
	case 0:
		b = byte(c.code >> 8)
	case 1:
		b = byte(c.code)
	}
	c.pos++
	return b, nil
}
