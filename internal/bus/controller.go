// internal/bus/controller.go
package bus

import "context"

// Controller is the local bus controller capability.
type Controller interface {
	// Transmit blocks until the controller has queued or sent the frame.
	// It does not wait for a peer: the bus is broadcast.
	Transmit(ctx context.Context, f Frame) error

	// Receive blocks for the next accepted frame, from a peer or from the
	// node's own transmissions when self-reception is enabled.
	Receive(ctx context.Context) (Frame, error)

	Close() error
}
