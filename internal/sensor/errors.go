// internal/sensor/errors.go
package sensor

import (
	"errors"
	"fmt"

	"github.com/tamzrod/can-daq-node/internal/status"
)

var (
	ErrShortResponse = errors.New("sensor: short response")
	ErrLongResponse  = errors.New("sensor: response longer than expected")
	ErrReadTimeout   = errors.New("sensor: read timeout")
	ErrBusy          = errors.New("sensor: previous read still in flight")
)

// AcquisitionError is a failed or malformed sensor transaction.
type AcquisitionError struct {
	Field Field
	Err   error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire %s: %v", e.Field, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Code places the failing field in the low byte of the acquisition code space.
func (e *AcquisitionError) Code() uint16 {
	code := status.CodeAcquisition | uint16(e.Field)
	if errors.Is(e.Err, ErrReadTimeout) || errors.Is(e.Err, ErrBusy) {
		code |= status.CodeTimeoutFlag
	}
	return code
}

func fail(f Field, err error) error {
	var ae *AcquisitionError
	if errors.As(err, &ae) {
		return err
	}
	return &AcquisitionError{Field: f, Err: err}
}
