//go:build linux

// internal/bus/socketcan_linux.go
package bus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// pollSlice bounds each blocking poll so Close and context cancellation
// are noticed.
const pollSlice = 100 * time.Millisecond

// txBackoff is the retry delay after ENOBUFS, about one 8-byte frame at 250 kbit/s.
const txBackoff = 500 * time.Microsecond

type socketCAN struct {
	fd   int
	name string

	done chan struct{}
	once sync.Once
}

// DialSocketCAN opens a CAN_RAW socket bound to cfg.Interface.
func DialSocketCAN(cfg SocketCANConfig) (Controller, error) {
	ifi, err := net.InterfaceByName(cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("socketcan %s: %w", cfg.Interface, err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socketcan %s: socket: %w", cfg.Interface, err)
	}

	if err := setupSocket(fd, ifi.Index, cfg); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("socketcan %s: %w", cfg.Interface, err)
	}

	return &socketCAN{fd: fd, name: cfg.Interface, done: make(chan struct{})}, nil
}

func setupSocket(fd, ifindex int, cfg SocketCANConfig) error {
	if cfg.SelfReception {
		if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_LOOPBACK, 1); err != nil {
			return fmt.Errorf("loopback: %w", err)
		}
		if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_RECV_OWN_MSGS, 1); err != nil {
			return fmt.Errorf("recv own msgs: %w", err)
		}
	}

	// Standard data frames only, then the configured acceptance mask.
	filter := []unix.CanFilter{{
		Id:   cfg.AcceptID & unix.CAN_SFF_MASK,
		Mask: (cfg.AcceptMask & unix.CAN_SFF_MASK) | unix.CAN_EFF_FLAG | unix.CAN_RTR_FLAG,
	}}
	if err := unix.SetsockoptCanRawFilter(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, filter); err != nil {
		return fmt.Errorf("filter: %w", err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("nonblock: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifindex}); err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	return nil
}

func (s *socketCAN) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// wait polls for events until ready, ctx ends, or the socket closes.
func (s *socketCAN) wait(ctx context.Context, events int16) error {
	for {
		if s.closed() {
			return ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		slice := pollSlice
		if dl, ok := ctx.Deadline(); ok {
			if left := time.Until(dl); left < slice {
				slice = left
			}
		}
		ms := int(slice / time.Millisecond)
		if ms < 1 {
			ms = 1
		}

		fds := []unix.PollFd{{Fd: int32(s.fd), Events: events}}
		n, err := unix.Poll(fds, ms)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return err
		}
		if n > 0 {
			if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 && fds[0].Revents&events == 0 {
				return ErrBusOff
			}
			return nil
		}
	}
}

func (s *socketCAN) Transmit(ctx context.Context, f Frame) error {
	buf, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	return sendLoop(ctx,
		func(ctx context.Context) error { return s.wait(ctx, unix.POLLOUT) },
		func() error {
			_, err := unix.Write(s.fd, buf)
			return err
		})
}

// sendLoop retries write until it succeeds, fails for good, or ctx ends.
// CAN_RAW reports POLLOUT even with a full TX queue, so ENOBUFS backs off
// for txBackoff instead of going straight back to poll.
func sendLoop(ctx context.Context, wait func(context.Context) error, write func() error) error {
	for {
		if err := wait(ctx); err != nil {
			return err
		}
		err := write()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ENOBUFS):
			t := time.NewTimer(txBackoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		case errors.Is(err, unix.ENETDOWN):
			return fmt.Errorf("%w: %v", ErrBusOff, err)
		case errors.Is(err, unix.EBADF):
			return ErrClosed
		default:
			return err
		}
	}
}

func (s *socketCAN) Receive(ctx context.Context) (Frame, error) {
	buf := make([]byte, WireLen)
	for {
		if err := s.wait(ctx, unix.POLLIN); err != nil {
			return Frame{}, err
		}
		n, err := unix.Read(s.fd, buf)
		switch {
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ENETDOWN):
			return Frame{}, fmt.Errorf("%w: %v", ErrBusOff, err)
		case errors.Is(err, unix.EBADF):
			return Frame{}, ErrClosed
		case err != nil:
			return Frame{}, err
		}
		var f Frame
		if err := f.UnmarshalBinary(buf[:n]); err != nil {
			return Frame{}, err
		}
		return f, nil
	}
}

func (s *socketCAN) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = unix.Close(s.fd)
	})
	return err
}
