// internal/bus/errors.go
package bus

import (
	"errors"
	"fmt"

	"github.com/tamzrod/can-daq-node/internal/status"
)

var (
	ErrClosed          = errors.New("canbus: closed")
	ErrInvalidID       = errors.New("canbus: invalid identifier")
	ErrInvalidLen      = errors.New("canbus: invalid data length")
	ErrBusOff          = errors.New("canbus: controller is bus-off")
	ErrArbitrationLost = errors.New("canbus: arbitration lost")
	ErrControllerBusy  = errors.New("canbus: controller busy")
)

// PublishError means the local controller did not accept a frame.
type PublishError struct {
	ID  uint32
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish 0x%03X: %v", e.ID, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Code places the failure kind in the low byte of the publish code space.
func (e *PublishError) Code() uint16 {
	var kind uint16
	switch {
	case errors.Is(e.Err, ErrBusOff):
		kind = 1
	case errors.Is(e.Err, ErrArbitrationLost):
		kind = 2
	case errors.Is(e.Err, ErrControllerBusy):
		kind = 3
	case errors.Is(e.Err, ErrClosed):
		kind = 4
	case errors.Is(e.Err, ErrInvalidID), errors.Is(e.Err, ErrInvalidLen):
		kind = 5
	default:
		kind = 0xFF
	}
	return status.CodePublish | kind
}
