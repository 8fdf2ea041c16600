// internal/bus/publisher.go
package bus

import (
	"context"
	"errors"
	"time"
)

// Publisher hands one payload at a time to the local controller.
type Publisher struct {
	ctrl    Controller
	timeout time.Duration
}

// NewPublisher returns a publisher over ctrl. timeout bounds how long a
// Publish waits for the controller to take the frame; zero means no bound
// beyond the caller's context.
func NewPublisher(ctrl Controller, timeout time.Duration) *Publisher {
	return &Publisher{ctrl: ctrl, timeout: timeout}
}

// Publish transmits payload[:n] with a standard identifier.
// It returns nil once the controller accepted the frame; it never waits
// for a peer acknowledgment beyond what the controller itself requires.
func (p *Publisher) Publish(ctx context.Context, id uint32, payload [8]byte, n uint8) error {
	f := Frame{ID: id, Len: n, Data: payload}
	if err := f.Validate(); err != nil {
		return &PublishError{ID: id, Err: err}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err := p.ctrl.Transmit(ctx, f)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = errors.Join(ErrControllerBusy, err)
	}
	return &PublishError{ID: id, Err: err}
}

// Controller returns the underlying controller, for the receive path.
func (p *Publisher) Controller() Controller { return p.ctrl }
