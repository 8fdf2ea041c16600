// internal/node/node.go
package node

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/tamzrod/can-daq-node/internal/bus"
	"github.com/tamzrod/can-daq-node/internal/hal/sim"
	"github.com/tamzrod/can-daq-node/internal/scheduler"
)

// Sim exposes the simulated peripherals of a node built on the sim backends.
// Fields are nil for sensors on other backends or not fitted.
type Sim struct {
	ADC       *sim.ADC
	PCNT      *sim.PCNT
	I2C       *sim.I2C
	Converter *sim.SPIConverter
	CS        *sim.Pin
	Stimulus  *sim.PulseGenerator
}

// Node is a built, not yet running, acquisition node.
type Node struct {
	Name      string
	Scheduler *scheduler.Scheduler
	// Controller is the bus controller; its receive path carries the node's
	// own frames back when self-reception is on.
	Controller bus.Controller
	Sim        Sim

	// own matches the frames this node publishes.
	own   bus.FrameFilter
	stats cycleStats

	echoed  atomic.Uint64
	foreign atomic.Uint64
	wg      sync.WaitGroup
	closers []func() error
}

// Stats is a running summary of the node since Build.
type Stats struct {
	Cycles    uint64
	Overruns  uint64
	Published uint64
	// Echoed counts own frames returned by self-reception,
	// Foreign the frames other nodes sent.
	Echoed  uint64
	Foreign uint64
}

// cycleStats is the scheduler reporter behind Stats.
type cycleStats struct {
	cycles    atomic.Uint64
	overruns  atomic.Uint64
	published atomic.Uint64
}

func (c *cycleStats) Report(r scheduler.Report) {
	c.cycles.Add(1)
	if r.Overrun != nil {
		c.overruns.Add(1)
	}
	n := uint64(r.Published)
	if r.StatusSent {
		n++
	}
	c.published.Add(n)
}

// Start launches the background tasks: the simulated pulse stimulus and
// the receive monitor. They stop when ctx ends.
func (n *Node) Start(ctx context.Context) {
	if g := n.Sim.Stimulus; g != nil {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			_ = g.Run(ctx)
		}()
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.monitor(ctx)
	}()
}

// monitor drains the receive path so the controller FIFO never overruns.
func (n *Node) monitor(ctx context.Context) {
	for {
		f, err := n.Controller.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, bus.ErrClosed) {
				glog.Errorf("node %s: receive: %v", n.Name, err)
			}
			return
		}
		if n.own != nil && n.own(f) {
			n.echoed.Add(1)
			continue
		}
		n.foreign.Add(1)
		if glog.V(3) {
			glog.Infof("node %s: rx %s", n.Name, f)
		}
	}
}

// Received is the number of frames the monitor has drained.
func (n *Node) Received() uint64 {
	return n.echoed.Load() + n.foreign.Load()
}

func (n *Node) Stats() Stats {
	return Stats{
		Cycles:    n.stats.cycles.Load(),
		Overruns:  n.stats.overruns.Load(),
		Published: n.stats.published.Load(),
		Echoed:    n.echoed.Load(),
		Foreign:   n.foreign.Load(),
	}
}

// Close releases every peripheral and the bus, then waits for background tasks.
// Cancel the Start context first.
func (n *Node) Close() error {
	var errs []error
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	n.wg.Wait()
	return errors.Join(errs...)
}
