// internal/hal/sim/pcnt.go
package sim

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tamzrod/can-daq-node/internal/hal"
)

// PCNTFilterMax is the widest glitch filter the simulated unit accepts.
const PCNTFilterMax uint16 = 1023

// PCNTChannels is the number of logical channels per unit.
const PCNTChannels = 2

// PCNT is a simulated pulse-counter unit.
//
// Edges arrive from other goroutines (the stimulus plays the role of the
// hardware), so the accumulator is atomic. The count saturates at the high
// limit; every edge that reaches the limit bumps LimitEvents.
type PCNT struct {
	count   atomic.Uint32
	limit   atomic.Uint32
	filter  atomic.Uint32
	running atomic.Bool

	limitEvents atomic.Uint64
	filtered    atomic.Uint64

	mu    sync.Mutex
	modes [PCNTChannels][2]hal.EdgeMode
}

// NewPCNT returns a stopped unit with no high limit and no filter.
func NewPCNT() *PCNT {
	p := &PCNT{}
	p.limit.Store(0xFFFF)
	return p
}

func (p *PCNT) SetHighLimit(limit uint16) error {
	if limit == 0 {
		return errors.New("sim pcnt: high limit must be > 0")
	}
	p.limit.Store(uint32(limit))
	return nil
}

func (p *PCNT) SetFilter(window uint16) error {
	if window > PCNTFilterMax {
		return fmt.Errorf("sim pcnt: filter window %d exceeds %d", window, PCNTFilterMax)
	}
	p.filter.Store(uint32(window))
	return nil
}

func (p *PCNT) FilterMax() uint16 { return PCNTFilterMax }

func (p *PCNT) SetChannelMode(channel uint8, rising, falling hal.EdgeMode) error {
	if int(channel) >= PCNTChannels {
		return fmt.Errorf("sim pcnt: channel %d out of range", channel)
	}
	p.mu.Lock()
	p.modes[channel] = [2]hal.EdgeMode{rising, falling}
	p.mu.Unlock()
	return nil
}

func (p *PCNT) Resume() error {
	p.running.Store(true)
	return nil
}

// Pause stops counting without touching the accumulator.
func (p *PCNT) Pause() {
	p.running.Store(false)
}

func (p *PCNT) Clear() error {
	p.count.Store(0)
	return nil
}

func (p *PCNT) Count() (uint16, error) {
	return uint16(p.count.Load()), nil
}

// Filter returns the configured glitch filter width.
func (p *PCNT) Filter() uint16 { return uint16(p.filter.Load()) }

// HighLimit returns the configured ceiling.
func (p *PCNT) HighLimit() uint16 { return uint16(p.limit.Load()) }

// LimitEvents is how many edges hit the high limit.
func (p *PCNT) LimitEvents() uint64 { return p.limitEvents.Load() }

// Filtered is how many edges the glitch filter swallowed.
func (p *PCNT) Filtered() uint64 { return p.filtered.Load() }

// Edge feeds one edge on channel with a pulse width in filter-clock cycles.
// Pulses narrower than the filter window are ignored.
func (p *PCNT) Edge(channel uint8, rising bool, width uint16) {
	if !p.running.Load() || int(channel) >= PCNTChannels {
		return
	}
	if uint32(width) < p.filter.Load() {
		p.filtered.Add(1)
		return
	}

	p.mu.Lock()
	m := p.modes[channel]
	p.mu.Unlock()

	mode := m[1]
	if rising {
		mode = m[0]
	}

	switch mode {
	case hal.EdgeIncrement:
		p.increment()
	case hal.EdgeDecrement:
		p.decrement()
	}
}

func (p *PCNT) increment() {
	for {
		cur := p.count.Load()
		limit := p.limit.Load()
		if cur >= limit {
			p.limitEvents.Add(1)
			return
		}
		if p.count.CompareAndSwap(cur, cur+1) {
			if cur+1 == limit {
				p.limitEvents.Add(1)
			}
			return
		}
	}
}

func (p *PCNT) decrement() {
	for {
		cur := p.count.Load()
		if cur == 0 {
			return
		}
		if p.count.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}
