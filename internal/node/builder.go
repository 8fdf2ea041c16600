// internal/node/builder.go
package node

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/tamzrod/can-daq-node/internal/bus"
	cfg "github.com/tamzrod/can-daq-node/internal/config"
	"github.com/tamzrod/can-daq-node/internal/frame"
	"github.com/tamzrod/can-daq-node/internal/hal"
	"github.com/tamzrod/can-daq-node/internal/hal/linux"
	hmodbus "github.com/tamzrod/can-daq-node/internal/hal/modbus"
	"github.com/tamzrod/can-daq-node/internal/hal/sim"
	"github.com/tamzrod/can-daq-node/internal/scheduler"
	"github.com/tamzrod/can-daq-node/internal/sensor"
)

// Build wires a validated, normalized config into a node.
// Peripherals are opened here so bad hardware fails fast at start-up.
// On error everything opened so far is closed again.
func Build(c *cfg.Config) (_ *Node, err error) {
	if c == nil || c.Frame.ID == nil {
		return nil, &cfg.ConfigurationError{Err: errors.New("config not normalized")}
	}

	n := &Node{Name: c.Node.Name}
	defer func() {
		if err != nil {
			_ = n.Close()
		}
	}()

	ctrl, err := buildController(n, c.Bus)
	if err != nil {
		return nil, err
	}
	n.Controller = ctrl

	timer, err := buildTimer(n, c.Cycle.Timer)
	if err != nil {
		return nil, err
	}

	adapters, err := buildSensors(n, c.Sensors)
	if err != nil {
		return nil, err
	}
	readTimeout := time.Duration(c.Cycle.ReadTimeoutUs) * time.Microsecond
	for i, a := range adapters {
		adapters[i] = sensor.WithTimeout(a, readTimeout)
	}

	mode, err := frame.ParsePressureMode(c.Frame.PressureMode)
	if err != nil {
		return nil, &cfg.ConfigurationError{Field: "frame.pressure_mode", Err: err}
	}
	var pressureID uint32
	if c.Frame.PressureID != nil {
		pressureID = *c.Frame.PressureID
	}
	policy, err := scheduler.ParseFailurePolicy(c.Cycle.AcquisitionFailure)
	if err != nil {
		return nil, &cfg.ConfigurationError{Field: "cycle.acquisition_failure", Err: err}
	}

	sc := scheduler.Config{
		Period: time.Duration(c.Cycle.PeriodUs) * time.Microsecond,
		Plan:   frame.NewPlan(*c.Frame.ID, mode, pressureID),
		Policy: policy,
	}
	if c.Status != nil {
		sc.StatusID = c.Status.ID
		sc.StatusEvery = c.Status.EveryCycles
	}
	n.own = bus.OwnFrames(ownIDs(sc)...)

	pub := bus.NewPublisher(ctrl, time.Duration(c.Bus.TransmitTimeoutUs)*time.Microsecond)
	n.Scheduler, err = scheduler.New(sc, scheduler.Deps{
		Adapters:  adapters,
		Publisher: pub,
		Timer:     timer,
		Reporter:  scheduler.Reporters{scheduler.LogReporter{}, &n.stats},
	})
	if err != nil {
		return nil, err
	}

	glog.Infof("node %s: %d sensors, frame 0x%03X, period %s, bus %s @ %d",
		n.Name, len(adapters), *c.Frame.ID, sc.Period, c.Bus.Backend, c.Bus.Bitrate)
	return n, nil
}

func ownIDs(sc scheduler.Config) []uint32 {
	ids := make([]uint32, 0, len(sc.Plan)+1)
	for _, m := range sc.Plan {
		ids = append(ids, m.ID)
	}
	if sc.StatusEvery > 0 {
		ids = append(ids, sc.StatusID)
	}
	return ids
}

func buildController(n *Node, b cfg.BusConfig) (bus.Controller, error) {
	var (
		ctrl bus.Controller
		err  error
	)
	self := b.SelfReception != nil && *b.SelfReception
	acceptID, acceptMask := uint32(0), uint32(0)
	if b.AcceptID != nil {
		acceptID = *b.AcceptID
	}
	if b.AcceptMask != nil {
		acceptMask = *b.AcceptMask
	}

	switch b.Backend {
	case "socketcan":
		ctrl, err = bus.DialSocketCAN(bus.SocketCANConfig{
			Interface:     b.Interface,
			SelfReception: self,
			AcceptID:      acceptID,
			AcceptMask:    acceptMask,
		})
		if err != nil {
			return nil, err
		}
	case "", "loopback":
		seg := bus.NewLoopback(b.Bitrate)
		ln, err := seg.Open(bus.NodeConfig{
			SelfReception: self,
			Filter:        bus.Acceptance(acceptID, acceptMask),
		})
		if err != nil {
			return nil, err
		}
		n.closers = append(n.closers, seg.Close)
		ctrl = ln
	default:
		return nil, &cfg.ConfigurationError{Field: "bus.backend", Err: fmt.Errorf("unknown backend %q", b.Backend)}
	}
	n.closers = append(n.closers, ctrl.Close)

	if b.LogFrames {
		ctrl = bus.NewLoggedController(ctrl, 3, bus.LogAll, nil)
	}
	return ctrl, nil
}

func buildTimer(n *Node, kind string) (hal.PeriodicTimer, error) {
	switch kind {
	case "timerfd":
		t, err := linux.NewTimerFD()
		if err != nil {
			return nil, err
		}
		n.closers = append(n.closers, t.Close)
		return t, nil
	case "", "sim":
		return sim.NewTimer(), nil
	default:
		return nil, &cfg.ConfigurationError{Field: "cycle.timer", Err: fmt.Errorf("unknown timer %q", kind)}
	}
}

func buildSensors(n *Node, s cfg.SensorsConfig) ([]sensor.Adapter, error) {
	var out []sensor.Adapter

	if v := s.Voltage; v != nil {
		a, err := buildVoltage(n, v)
		if err != nil {
			return nil, fmt.Errorf("voltage: %w", err)
		}
		out = append(out, a)
	}
	if p := s.Pulses; p != nil {
		a, err := buildPulses(n, p)
		if err != nil {
			return nil, fmt.Errorf("pulses: %w", err)
		}
		out = append(out, a)
	}
	if p := s.Pressure; p != nil {
		a, err := buildPressure(n, p)
		if err != nil {
			return nil, fmt.Errorf("pressure: %w", err)
		}
		out = append(out, a)
	}
	if e := s.External; e != nil {
		a, err := buildExternal(n, e)
		if err != nil {
			return nil, fmt.Errorf("external: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

func buildVoltage(n *Node, v *cfg.VoltageConfig) (sensor.Adapter, error) {
	var adc hal.ADC
	switch v.Backend {
	case "iio":
		a, err := linux.NewIIOADC(v.Device)
		if err != nil {
			return nil, err
		}
		adc = a
	default:
		bits := v.SimBits
		if bits == 0 {
			bits = cfg.DefaultSimBits
		}
		a := sim.NewADC(bits)
		a.Set(v.Channel, v.SimCode)
		n.Sim.ADC = a
		adc = a
	}
	return sensor.NewVoltage(adc, v.Channel), nil
}

func buildPulses(n *Node, p *cfg.PulsesConfig) (sensor.Adapter, error) {
	pc := sensor.PulseConfig{
		HighLimit:    cfg.DefaultHighLimit,
		FilterWindow: cfg.DefaultFilterWindow,
		CountFalling: p.CountFalling,
	}
	if p.HighLimit != nil {
		pc.HighLimit = *p.HighLimit
	}
	if p.FilterWindow != nil {
		pc.FilterWindow = *p.FilterWindow
	}

	var unit hal.PulseUnit
	switch p.Backend {
	case "counter":
		c, err := linux.NewCounter(p.Device)
		if err != nil {
			return nil, err
		}
		unit = c
	default:
		u := sim.NewPCNT()
		n.Sim.PCNT = u
		unit = u
		if p.SimHz > 0 {
			width := p.SimWidth
			if width == 0 {
				// Wide enough to pass the configured glitch filter.
				width = sensor.ClampFilter(pc.FilterWindow, u.FilterMax())
			}
			n.Sim.Stimulus = &sim.PulseGenerator{Unit: u, Hz: p.SimHz, Width: width}
		}
	}

	counter, err := sensor.NewPulseCounter(unit, pc)
	if err != nil {
		return nil, err
	}
	if pc.FilterWindow > uint32(counter.FilterWindow()) {
		glog.Warningf("pulses: filter window %d clamped to %d", pc.FilterWindow, counter.FilterWindow())
	}
	return counter, nil
}

func buildPressure(n *Node, p *cfg.PressureConfig) (sensor.Adapter, error) {
	var i2c hal.I2C
	switch p.Backend {
	case "i2cdev":
		d, err := linux.OpenI2CDev(p.Device)
		if err != nil {
			return nil, err
		}
		n.closers = append(n.closers, d.Close)
		i2c = d
	case "modbus":
		m := p.Modbus
		t, err := hmodbus.New(hmodbus.Config{
			Port:     m.Port,
			BaudRate: m.BaudRate,
			DataBits: m.DataBits,
			Parity:   m.Parity,
			StopBits: m.StopBits,
			Timeout:  time.Duration(m.TimeoutMs) * time.Millisecond,
			Holding:  m.Registers == "holding",
		})
		if err != nil {
			return nil, err
		}
		n.closers = append(n.closers, t.Close)
		i2c = t
	default:
		b := sim.NewI2C()
		resp := p.SimResponse
		if len(resp) == 0 {
			resp = make([]byte, p.ResponseLen)
		}
		b.Attach(p.Address, sim.FixedResponse(resp))
		n.Sim.I2C = b
		i2c = b
	}

	return sensor.NewPressure(i2c, sensor.PressureConfig{
		Address:     p.Address,
		Command:     p.Command,
		ResponseLen: p.ResponseLen,
	})
}

func buildExternal(n *Node, e *cfg.ExternalConfig) (sensor.Adapter, error) {
	switch e.Backend {
	case "spidev":
		spi, err := linux.OpenSPIDev(e.Device, e.SpeedHz)
		if err != nil {
			return nil, err
		}
		n.closers = append(n.closers, spi.Close)
		cs, err := linux.OpenGPIOPin(*e.CSGPIO, !e.CSActiveHigh)
		if err != nil {
			return nil, err
		}
		n.closers = append(n.closers, cs.Close)
		return sensor.NewExternal(spi, cs, e.CSActiveHigh)
	default:
		// The simulated converter is active-low.
		cs := sim.NewPin(true)
		conv := sim.NewSPIConverter(cs)
		conv.SetCode(e.SimCode)
		n.Sim.CS = cs
		n.Sim.Converter = conv
		return sensor.NewExternal(conv, cs, false)
	}
}
