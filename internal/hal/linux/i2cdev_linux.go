//go:build linux

// internal/hal/linux/i2cdev_linux.go
package linux

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// i2c-dev ioctl selecting the slave address for following read/write calls.
const i2cSlave = 0x0703

// I2CDev is an i2c-dev character device, e.g. /dev/i2c-1.
type I2CDev struct {
	mu   sync.Mutex
	fd   int
	addr int
}

func OpenI2CDev(path string) (*I2CDev, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("i2c %s: %w", path, err)
	}
	return &I2CDev{fd: fd, addr: -1}, nil
}

// Transact writes cmd then reads up to n bytes. A short read is returned as is.
func (d *I2CDev) Transact(ctx context.Context, addr uint8, cmd []byte, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.addr != int(addr) {
		if err := unix.IoctlSetInt(d.fd, i2cSlave, int(addr)); err != nil {
			return nil, fmt.Errorf("i2c slave 0x%02X: %w", addr, err)
		}
		d.addr = int(addr)
	}

	if len(cmd) > 0 {
		if _, err := unix.Write(d.fd, cmd); err != nil {
			return nil, fmt.Errorf("i2c write 0x%02X: %w", addr, err)
		}
	}

	buf := make([]byte, n)
	got, err := unix.Read(d.fd, buf)
	if err != nil {
		return nil, fmt.Errorf("i2c read 0x%02X: %w", addr, err)
	}
	return buf[:got], nil
}

func (d *I2CDev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return unix.Close(d.fd)
}
