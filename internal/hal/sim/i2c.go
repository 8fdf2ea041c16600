// internal/hal/sim/i2c.go
package sim

import (
	"context"
	"fmt"
	"sync"
)

// Responder produces a device's response to one command.
type Responder func(cmd []byte) ([]byte, error)

// I2C is a simulated request/response bus with devices keyed by address.
type I2C struct {
	mu      sync.Mutex
	devices map[uint8]Responder
}

func NewI2C() *I2C {
	return &I2C{devices: make(map[uint8]Responder)}
}

// Attach places a device at addr, replacing any previous one.
func (b *I2C) Attach(addr uint8, r Responder) {
	b.mu.Lock()
	b.devices[addr] = r
	b.mu.Unlock()
}

// Transact returns the device response unmodified, even when its length differs from n.
func (b *I2C) Transact(ctx context.Context, addr uint8, cmd []byte, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	r, ok := b.devices[addr]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("sim i2c: no ack from 0x%02x", addr)
	}
	return r(cmd)
}

// FixedResponse answers every command with a copy of resp.
func FixedResponse(resp []byte) Responder {
	return func([]byte) ([]byte, error) {
		out := make([]byte, len(resp))
		copy(out, resp)
		return out, nil
	}
}
