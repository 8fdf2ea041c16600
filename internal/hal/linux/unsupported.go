//go:build !linux

// internal/hal/linux/unsupported.go
package linux

import (
	"context"
	"errors"
	"time"
)

var errUnsupported = errors.New("hal/linux: not supported on this platform")

type I2CDev struct{}

func OpenI2CDev(string) (*I2CDev, error) { return nil, errUnsupported }

func (*I2CDev) Transact(context.Context, uint8, []byte, int) ([]byte, error) {
	return nil, errUnsupported
}

func (*I2CDev) Close() error { return nil }

type SPIDev struct{}

func OpenSPIDev(string, uint32) (*SPIDev, error) { return nil, errUnsupported }

func (*SPIDev) Shift(context.Context) (byte, error) { return 0, errUnsupported }

func (*SPIDev) Close() error { return nil }

type TimerFD struct{}

func NewTimerFD() (*TimerFD, error) { return nil, errUnsupported }

func (*TimerFD) Start(time.Duration) error { return errUnsupported }

func (*TimerFD) Wait(context.Context) (uint64, error) { return 0, errUnsupported }

func (*TimerFD) Stop() error { return nil }

func (*TimerFD) Close() error { return nil }
