// internal/hal/linux/counter.go
package linux

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"

	"github.com/tamzrod/can-daq-node/internal/hal"
)

// Counter drives count0 of a Linux counter-subsystem device.
// Logical channel N maps to count0/synapseN.
//
// The counter subsystem has no common glitch-filter attribute. The window
// is written to FilterAttr when the driver names one, otherwise kept only.
type Counter struct {
	dir        string
	FilterAttr string
	Max        uint16

	window uint16
}

// NewCounter opens a counter device directory, e.g. /sys/bus/counter/devices/counter0.
func NewCounter(dir string) (*Counter, error) {
	c := &Counter{dir: filepath.Join(dir, "count0"), Max: 1023}
	if _, err := readAttr(c.dir, "count"); err != nil {
		return nil, fmt.Errorf("counter %s: %w", dir, err)
	}
	return c, nil
}

func (c *Counter) SetHighLimit(limit uint16) error {
	return writeAttr(c.dir, "ceiling", strconv.Itoa(int(limit)))
}

func (c *Counter) SetFilter(window uint16) error {
	if window > c.Max {
		return fmt.Errorf("counter: filter %d above maximum %d", window, c.Max)
	}
	c.window = window
	if c.FilterAttr == "" {
		return nil
	}
	return writeAttr(c.dir, c.FilterAttr, strconv.Itoa(int(window)))
}

func (c *Counter) FilterMax() uint16 { return c.Max }

func (c *Counter) SetChannelMode(channel uint8, rising, falling hal.EdgeMode) error {
	if rising == hal.EdgeDecrement || falling == hal.EdgeDecrement {
		return fmt.Errorf("counter: channel %d: decrement not supported", channel)
	}
	action := "none"
	switch {
	case rising == hal.EdgeIncrement && falling == hal.EdgeIncrement:
		action = "both edges"
	case rising == hal.EdgeIncrement:
		action = "rising edge"
	case falling == hal.EdgeIncrement:
		action = "falling edge"
	}
	if action != "none" {
		if err := writeAttr(c.dir, "function", "increase"); err != nil {
			return err
		}
	}
	return writeAttr(c.dir, fmt.Sprintf("synapse%d/action", channel), action)
}

func (c *Counter) Resume() error { return writeAttr(c.dir, "enable", "1") }

func (c *Counter) Clear() error { return writeAttr(c.dir, "count", "0") }

// Count reads the accumulator. Values wider than 16 bits clip to the maximum;
// the ceiling keeps a configured device far below that.
func (c *Counter) Count() (uint16, error) {
	v, err := readUint(c.dir, "count")
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint16 {
		v = math.MaxUint16
	}
	return uint16(v), nil
}
