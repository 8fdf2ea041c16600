// internal/frame/assemble.go
package frame

import (
	"encoding/binary"

	"github.com/tamzrod/can-daq-node/internal/sensor"
)

// Assemble maps one cycle's samples to the data frame payload.
// Referentially transparent: no IO, no state. Unpopulated fields stay zero.
func Assemble(s sensor.SampleSet, mode PressureMode) Payload {
	var p Payload

	if s.Has(sensor.FieldVoltage) {
		binary.BigEndian.PutUint16(p[OffsetVoltage:], s.Voltage)
	}
	if s.Has(sensor.FieldPulses) {
		binary.BigEndian.PutUint16(p[OffsetPulses:], s.Pulses)
	}
	if s.Has(sensor.FieldExternal) {
		binary.BigEndian.PutUint16(p[OffsetExternal:], s.External)
	}
	if mode == PressurePacked && s.Has(sensor.FieldPressure) {
		raw := s.PressureBytes()
		switch n := len(raw); {
		case n >= 2:
			p[OffsetReserved] = raw[n-2]
			p[OffsetReserved+1] = raw[n-1]
		case n == 1:
			p[OffsetReserved+1] = raw[0]
		}
	}

	return p
}

// Fields is the decoded view of a data frame payload.
type Fields struct {
	Voltage  uint16
	Pulses   uint16
	External uint16
	Reserved uint16
}

// Decode reads the data frame fields back out of p.
func Decode(p Payload) Fields {
	return Fields{
		Voltage:  binary.BigEndian.Uint16(p[OffsetVoltage:]),
		Pulses:   binary.BigEndian.Uint16(p[OffsetPulses:]),
		External: binary.BigEndian.Uint16(p[OffsetExternal:]),
		Reserved: binary.BigEndian.Uint16(p[OffsetReserved:]),
	}
}

// PressurePayload carries the raw pressure response in its own frame.
// The length is the response length; trailing bytes are zero.
func PressurePayload(s sensor.SampleSet) (Payload, uint8) {
	var p Payload
	n := copy(p[:], s.PressureBytes())
	return p, uint8(n)
}
