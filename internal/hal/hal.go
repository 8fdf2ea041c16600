// internal/hal/hal.go
package hal

import (
	"context"
	"time"
)

// Capability interfaces consumed by the acquisition core.
// Drivers live behind these; the core never touches registers.

// ADC performs single-shot analog conversions.
type ADC interface {
	// ReadOneShot starts one conversion on channel and blocks for the code.
	ReadOneShot(ctx context.Context, channel uint8) (uint16, error)
}

// EdgeMode is what a pulse-counter channel does on an edge.
type EdgeMode uint8

const (
	EdgeHold EdgeMode = iota
	EdgeIncrement
	EdgeDecrement
)

// PulseUnit is one hardware pulse-counter unit.
// The count is written by hardware between Resume and Clear.
type PulseUnit interface {
	SetHighLimit(limit uint16) error
	// SetFilter sets the glitch filter width in filter-clock cycles.
	// Hardware rejects values above FilterMax.
	SetFilter(window uint16) error
	FilterMax() uint16
	// SetChannelMode binds the edge behaviour of one logical channel.
	SetChannelMode(channel uint8, rising, falling EdgeMode) error
	Resume() error
	Clear() error
	Count() (uint16, error)
}

// I2C is a request/response serial bus.
type I2C interface {
	// Transact writes cmd to addr, then reads n bytes back.
	// Implementations return whatever the device produced; length checks belong to the caller.
	Transact(ctx context.Context, addr uint8, cmd []byte, n int) ([]byte, error)
}

// SPI is a synchronous serial bus without chip-select control.
// Shift clocks one byte in from the selected device.
type SPI interface {
	Shift(ctx context.Context) (byte, error)
}

// Pin is a digital output line.
type Pin interface {
	Set(high bool) error
}

// PeriodicTimer fires on fixed period boundaries.
type PeriodicTimer interface {
	Start(period time.Duration) error
	// Wait blocks until the next boundary. If one or more boundaries already
	// passed it returns immediately. missed is the number of boundaries consumed.
	Wait(ctx context.Context) (missed uint64, err error)
	Stop() error
}
