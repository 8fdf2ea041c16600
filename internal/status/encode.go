// internal/status/encode.go
package status

import (
	"encoding/binary"
	"errors"
)

// Encode converts a Snapshot into a status frame payload.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot) [FrameLen]byte {
	var b [FrameLen]byte

	binary.BigEndian.PutUint16(b[OffsetHealth:], s.Health)
	binary.BigEndian.PutUint16(b[OffsetLastErrorCode:], s.LastErrorCode)
	binary.BigEndian.PutUint16(b[OffsetOverruns:], s.Overruns)
	binary.BigEndian.PutUint16(b[OffsetSecondsInError:], s.SecondsInError)

	return b
}

// Decode is the inverse of Encode.
func Decode(b [FrameLen]byte) Snapshot {
	return Snapshot{
		Health:         binary.BigEndian.Uint16(b[OffsetHealth:]),
		LastErrorCode:  binary.BigEndian.Uint16(b[OffsetLastErrorCode:]),
		Overruns:       binary.BigEndian.Uint16(b[OffsetOverruns:]),
		SecondsInError: binary.BigEndian.Uint16(b[OffsetSecondsInError:]),
	}
}

// ErrorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, returns CodeGeneric.
func ErrorCode(err error) uint16 {
	if err == nil {
		return CodeNone
	}

	type coder interface{ Code() uint16 }

	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeGeneric
}
