// internal/hal/linux/iio.go
package linux

import (
	"context"
	"fmt"
	"math"
)

// IIOADC reads single conversions through the IIO sysfs interface.
// Reading in_voltageN_raw triggers one conversion on most drivers.
type IIOADC struct {
	dir string
}

func NewIIOADC(dir string) (*IIOADC, error) {
	if _, err := readAttr(dir, "name"); err != nil {
		return nil, fmt.Errorf("iio %s: %w", dir, err)
	}
	return &IIOADC{dir: dir}, nil
}

func (a *IIOADC) ReadOneShot(ctx context.Context, channel uint8) (uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, err := readUint(a.dir, fmt.Sprintf("in_voltage%d_raw", channel))
	if err != nil {
		return 0, fmt.Errorf("iio channel %d: %w", channel, err)
	}
	if v > math.MaxUint16 {
		return 0, fmt.Errorf("iio channel %d: code %d exceeds 16 bits", channel, v)
	}
	return uint16(v), nil
}
