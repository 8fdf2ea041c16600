//go:build linux

// internal/hal/linux/spidev_linux.go
package linux

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// spidev ioctls and flags (linux/spi/spidev.h).
const (
	spiIOCWrMode       = 0x40016B01
	spiIOCWrMaxSpeedHz = 0x40046B04
	spiIOCMessage1     = 0x40206B00

	spiNoCS = 0x40
)

// spiIOCTransfer mirrors struct spi_ioc_transfer.
type spiIOCTransfer struct {
	txBuf       uint64
	rxBuf       uint64
	length      uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNbits     uint8
	rxNbits     uint8
	wordDelay   uint8
	pad         uint8
}

// SPIDev is a spidev character device. Chip select is left to a GPIO
// owned by the caller, so the driver's own CS is disabled.
type SPIDev struct {
	mu    sync.Mutex
	fd    int
	speed uint32

	// Transfer buffers live with the device so their addresses stay fixed
	// while the kernel uses them.
	tx, rx [1]byte
}

func OpenSPIDev(path string, speedHz uint32) (*SPIDev, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("spi %s: %w", path, err)
	}
	mode := uint8(spiNoCS)
	if err := ioctlPtr(fd, spiIOCWrMode, unsafe.Pointer(&mode)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("spi %s: mode: %w", path, err)
	}
	if err := ioctlPtr(fd, spiIOCWrMaxSpeedHz, unsafe.Pointer(&speedHz)); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("spi %s: speed: %w", path, err)
	}
	return &SPIDev{fd: fd, speed: speedHz}, nil
}

// Shift clocks out 0x00 and returns the byte clocked in.
func (d *SPIDev) Shift(ctx context.Context) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.tx[0] = 0
	xfer := spiIOCTransfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&d.tx[0]))),
		rxBuf:       uint64(uintptr(unsafe.Pointer(&d.rx[0]))),
		length:      1,
		speedHz:     d.speed,
		bitsPerWord: 8,
	}
	if err := ioctlPtr(d.fd, spiIOCMessage1, unsafe.Pointer(&xfer)); err != nil {
		return 0, fmt.Errorf("spi transfer: %w", err)
	}
	return d.rx[0], nil
}

func (d *SPIDev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return unix.Close(d.fd)
}

func ioctlPtr(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
