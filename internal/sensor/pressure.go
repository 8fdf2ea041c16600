// internal/sensor/pressure.go
package sensor

import (
	"context"
	"errors"
	"fmt"

	"github.com/tamzrod/can-daq-node/internal/hal"
)

// PressureConfig describes the fixed command transaction.
type PressureConfig struct {
	Address     uint8
	Command     []byte
	ResponseLen int
}

// Pressure reads a digital pressure sensor with one write-then-read transaction.
type Pressure struct {
	bus hal.I2C
	cfg PressureConfig
}

func NewPressure(bus hal.I2C, cfg PressureConfig) (*Pressure, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("pressure: command required")
	}
	if cfg.ResponseLen < 1 || cfg.ResponseLen > MaxPressureBytes {
		return nil, fmt.Errorf("pressure: response length %d not in 1..%d", cfg.ResponseLen, MaxPressureBytes)
	}
	cmd := make([]byte, len(cfg.Command))
	copy(cmd, cfg.Command)
	cfg.Command = cmd
	return &Pressure{bus: bus, cfg: cfg}, nil
}

func (p *Pressure) Field() Field { return FieldPressure }

// Acquire returns the raw response. Code holds the last two response bytes big-endian.
func (p *Pressure) Acquire(ctx context.Context) (Reading, error) {
	resp, err := p.bus.Transact(ctx, p.cfg.Address, p.cfg.Command, p.cfg.ResponseLen)
	if err != nil {
		return Reading{}, fail(FieldPressure, err)
	}

	switch {
	case len(resp) < p.cfg.ResponseLen:
		return Reading{}, fail(FieldPressure, fmt.Errorf("%w: got %d want %d", ErrShortResponse, len(resp), p.cfg.ResponseLen))
	case len(resp) > p.cfg.ResponseLen:
		return Reading{}, fail(FieldPressure, fmt.Errorf("%w: got %d want %d", ErrLongResponse, len(resp), p.cfg.ResponseLen))
	}

	raw := make([]byte, len(resp))
	copy(raw, resp)

	var code uint16
	if n := len(raw); n >= 2 {
		code = uint16(raw[n-2])<<8 | uint16(raw[n-1])
	} else {
		code = uint16(raw[0])
	}
	return Reading{Code: code, Raw: raw}, nil
}
