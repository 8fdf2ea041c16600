// internal/hal/linux/gpio.go
package linux

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// GPIOPin is an output line on the sysfs GPIO interface.
type GPIOPin struct {
	dir string
	f   *os.File
}

// SysfsGPIORoot is where sysfs GPIO lives.
var SysfsGPIORoot = "/sys/class/gpio"

// OpenGPIOPin exports the line if needed and configures it as an output
// at the given initial level.
func OpenGPIOPin(line int, high bool) (*GPIOPin, error) {
	dir := filepath.Join(SysfsGPIORoot, fmt.Sprintf("gpio%d", line))
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := writeAttr(SysfsGPIORoot, "export", fmt.Sprint(line)); err != nil {
			return nil, fmt.Errorf("gpio %d: export: %w", line, err)
		}
		// udev needs a moment to fix permissions on a fresh export.
		for i := 0; i < 10; i++ {
			if _, err := os.Stat(filepath.Join(dir, "direction")); err == nil {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	initial := "low"
	if high {
		initial = "high"
	}
	if err := writeAttr(dir, "direction", initial); err != nil {
		return nil, fmt.Errorf("gpio %d: direction: %w", line, err)
	}

	f, err := os.OpenFile(filepath.Join(dir, "value"), os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("gpio %d: %w", line, err)
	}
	return &GPIOPin{dir: dir, f: f}, nil
}

func (p *GPIOPin) Set(high bool) error {
	v := []byte("0")
	if high {
		v = []byte("1")
	}
	_, err := p.f.WriteAt(v, 0)
	return err
}

func (p *GPIOPin) Close() error {
	return p.f.Close()
}
