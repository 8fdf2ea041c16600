// internal/bus/loopback.go
package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRxQueue is the receive FIFO depth of a loopback node.
const DefaultRxQueue = 64

// Loopback is an in-memory CAN segment. Frames transmitted by one node are
// delivered to every other node, and to the sender itself when its
// self-reception is enabled.
//
// Delivery never blocks: a full receive FIFO drops the frame and counts
// an overrun, as a controller would.
type Loopback struct {
	bitrate int

	mu     sync.RWMutex
	closed bool
	nodes  map[*LoopbackNode]struct{}
}

// NewLoopback creates a segment. A positive bitrate makes Transmit take
// the on-wire time of the frame; zero delivers instantly.
func NewLoopback(bitrate int) *Loopback {
	return &Loopback{
		bitrate: bitrate,
		nodes:   make(map[*LoopbackNode]struct{}),
	}
}

// NodeConfig configures one node attached to a Loopback.
type NodeConfig struct {
	SelfReception bool
	Filter        FrameFilter // nil accepts everything
	RxQueue       int         // 0 means DefaultRxQueue
}

// Open attaches a node to the segment.
func (b *Loopback) Open(cfg NodeConfig) (*LoopbackNode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	q := cfg.RxQueue
	if q <= 0 {
		q = DefaultRxQueue
	}
	n := &LoopbackNode{
		seg:  b,
		cfg:  cfg,
		rx:   make(chan Frame, q),
		done: make(chan struct{}),
	}
	b.nodes[n] = struct{}{}
	return n, nil
}

// Close detaches every node.
func (b *Loopback) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	nodes := b.nodes
	b.nodes = map[*LoopbackNode]struct{}{}
	b.mu.Unlock()

	for n := range nodes {
		n.shutdown()
	}
	return nil
}

func (b *Loopback) deliver(from *LoopbackNode, f Frame) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for n := range b.nodes {
		if n == from && !n.cfg.SelfReception {
			continue
		}
		n.accept(f)
	}
}

func (b *Loopback) detach(n *LoopbackNode) {
	b.mu.Lock()
	delete(b.nodes, n)
	b.mu.Unlock()
}

// LoopbackNode is one controller on a Loopback segment.
type LoopbackNode struct {
	seg  *Loopback
	cfg  NodeConfig
	rx   chan Frame
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	fault error

	sent     atomic.Uint64
	received atomic.Uint64
	overruns atomic.Uint64
}

var _ Controller = (*LoopbackNode)(nil)

// InjectFault makes every following Transmit fail with err until
// cleared with InjectFault(nil).
func (n *LoopbackNode) InjectFault(err error) {
	n.mu.Lock()
	n.fault = err
	n.mu.Unlock()
}

func (n *LoopbackNode) currentFault() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fault
}

func (n *LoopbackNode) Transmit(ctx context.Context, f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	select {
	case <-n.done:
		return ErrClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.currentFault(); err != nil {
		return err
	}

	if n.seg.bitrate > 0 {
		wire := time.Duration(FrameBits(f)) * time.Second / time.Duration(n.seg.bitrate)
		t := time.NewTimer(wire)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-n.done:
			t.Stop()
			return ErrClosed
		}
	}

	n.sent.Add(1)
	n.seg.deliver(n, f)
	return nil
}

func (n *LoopbackNode) accept(f Frame) {
	if n.cfg.Filter != nil && !n.cfg.Filter(f) {
		return
	}
	select {
	case <-n.done:
		return
	default:
	}
	select {
	case n.rx <- f:
		n.received.Add(1)
	default:
		n.overruns.Add(1)
	}
}

func (n *LoopbackNode) Receive(ctx context.Context) (Frame, error) {
	select {
	case f := <-n.rx:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-n.done:
		return Frame{}, ErrClosed
	}
}

func (n *LoopbackNode) Close() error {
	n.seg.detach(n)
	n.shutdown()
	return nil
}

func (n *LoopbackNode) shutdown() {
	n.once.Do(func() { close(n.done) })
}

// Stats reports frames sent, frames queued for receive, and receive FIFO overruns.
func (n *LoopbackNode) Stats() (sent, received, overruns uint64) {
	return n.sent.Load(), n.received.Load(), n.overruns.Load()
}
