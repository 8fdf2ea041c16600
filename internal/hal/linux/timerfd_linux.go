//go:build linux

// internal/hal/linux/timerfd_linux.go
package linux

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// pollSlice bounds each blocking poll so context cancellation is noticed.
const pollSlice = 100 * time.Millisecond

// TimerFD is a periodic timer on CLOCK_MONOTONIC. Expirations queue in the
// kernel, so a late Wait returns at once with the number that passed.
type TimerFD struct {
	mu sync.Mutex
	fd int
}

func NewTimerFD() (*TimerFD, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("timerfd: %w", err)
	}
	return &TimerFD{fd: fd}, nil
}

func (t *TimerFD) Start(period time.Duration) error {
	if period <= 0 {
		return errors.New("timerfd: period must be > 0")
	}
	ts := unix.NsecToTimespec(period.Nanoseconds())
	its := unix.ItimerSpec{Interval: ts, Value: ts}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settime(&its)
}

func (t *TimerFD) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settime(&unix.ItimerSpec{})
}

func (t *TimerFD) settime(its *unix.ItimerSpec) error {
	if t.fd < 0 {
		return errors.New("timerfd: closed")
	}
	if err := unix.TimerfdSettime(t.fd, 0, its, nil); err != nil {
		return fmt.Errorf("timerfd: settime: %w", err)
	}
	return nil
}

func (t *TimerFD) Wait(ctx context.Context) (uint64, error) {
	var buf [8]byte
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := unix.Read(t.fd, buf[:])
		switch {
		case err == nil && n == len(buf):
			return binary.NativeEndian.Uint64(buf[:]), nil
		case err == nil:
			return 0, fmt.Errorf("timerfd: short read %d", n)
		case errors.Is(err, unix.EINTR):
			continue
		case !errors.Is(err, unix.EAGAIN):
			return 0, fmt.Errorf("timerfd: %w", err)
		}

		fds := []unix.PollFd{{Fd: int32(t.fd), Events: unix.POLLIN}}
		if _, err := unix.Poll(fds, int(pollSlice/time.Millisecond)); err != nil && !errors.Is(err, unix.EINTR) {
			return 0, fmt.Errorf("timerfd: poll: %w", err)
		}
	}
}

func (t *TimerFD) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fd < 0 {
		return nil
	}
	err := unix.Close(t.fd)
	t.fd = -1
	return err
}
