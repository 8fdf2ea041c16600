// internal/frame/layout.go
package frame

import "fmt"

// Data frame layout constants.
// Consumers on the bus rely on byte placement; these MUST NOT be configurable.

// PayloadLen is the fixed payload size in bytes.
const PayloadLen = 8

// Byte offsets of the big-endian u16 fields.
const (
	OffsetVoltage  = 0
	OffsetPulses   = 2
	OffsetExternal = 4
	// OffsetReserved is zero unless pressure is packed into the data frame.
	OffsetReserved = 6
)

// Payload is one frame's data bytes. Always PayloadLen bytes; unused bytes are zero.
type Payload [PayloadLen]byte

func (p Payload) String() string {
	return fmt.Sprintf("% X", p[:])
}

// PressureMode selects where pressure data goes on the wire.
type PressureMode uint8

const (
	// PressureNone leaves bytes 6-7 reserved.
	PressureNone PressureMode = iota
	// PressurePacked places the last two response bytes at bytes 6-7.
	PressurePacked
	// PressureSeparate sends the raw response in its own frame.
	PressureSeparate
)

func (m PressureMode) String() string {
	switch m {
	case PressureNone:
		return "none"
	case PressurePacked:
		return "packed"
	case PressureSeparate:
		return "separate"
	default:
		return fmt.Sprintf("pressure_mode(%d)", uint8(m))
	}
}

// ParsePressureMode maps the config spelling to a mode. Empty means none.
func ParsePressureMode(s string) (PressureMode, error) {
	switch s {
	case "", "none":
		return PressureNone, nil
	case "packed":
		return PressurePacked, nil
	case "separate":
		return PressureSeparate, nil
	default:
		return 0, fmt.Errorf("frame: unknown pressure mode %q", s)
	}
}
