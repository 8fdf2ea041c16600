// internal/sensor/types.go
package sensor

import (
	"context"
	"fmt"
)

// Field names one slot of a SampleSet.
// The numeric order is the fixed acquisition order.
type Field uint8

const (
	FieldVoltage Field = iota
	FieldPulses
	FieldPressure
	FieldExternal

	fieldCount
)

func (f Field) String() string {
	switch f {
	case FieldVoltage:
		return "voltage"
	case FieldPulses:
		return "pulses"
	case FieldPressure:
		return "pressure"
	case FieldExternal:
		return "external"
	default:
		return fmt.Sprintf("field(%d)", uint8(f))
	}
}

// MaxPressureBytes is the longest pressure response a SampleSet holds.
const MaxPressureBytes = 8

// Reading is the raw result of one acquisition.
type Reading struct {
	Code uint16
	// Raw carries the full response of byte-oriented sensors (pressure).
	Raw []byte
	// Saturated is set when an accumulating sensor hit its ceiling.
	Saturated bool
}

// SampleSet holds the readings of exactly one cycle.
// It is a value type with no references so it cannot leak into the next cycle.
type SampleSet struct {
	Voltage     uint16
	Pulses      uint16
	Pressure    [MaxPressureBytes]byte
	PressureLen uint8
	External    uint16

	present uint8
}

// Put stores r in the slot for f.
func (s *SampleSet) Put(f Field, r Reading) {
	switch f {
	case FieldVoltage:
		s.Voltage = r.Code
	case FieldPulses:
		s.Pulses = r.Code
	case FieldPressure:
		s.Pressure = [MaxPressureBytes]byte{}
		s.PressureLen = uint8(copy(s.Pressure[:], r.Raw))
	case FieldExternal:
		s.External = r.Code
	default:
		return
	}
	s.present |= 1 << f
}

// Has reports whether f was populated this cycle.
func (s SampleSet) Has(f Field) bool {
	return f < fieldCount && s.present&(1<<f) != 0
}

// PressureBytes returns the populated part of the pressure response.
func (s *SampleSet) PressureBytes() []byte {
	return s.Pressure[:s.PressureLen]
}

// Adapter is the uniform capability over one sensing path.
// Acquire blocks until a value or an error is available and never
// substitutes a guessed value on failure.
type Adapter interface {
	Field() Field
	Acquire(ctx context.Context) (Reading, error)
}

// Resetter is implemented by adapters that accumulate between cycles.
// The scheduler is the only caller, once per cycle.
type Resetter interface {
	Reset() error
}
