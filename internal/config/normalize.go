// internal/config/normalize.go
package config

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

// Defaults.
const (
	DefaultFrameID         = 0x12
	DefaultPeriodUs        = 10000
	DefaultBitrate         = 250000
	DefaultReadTimeoutUs   = 2000
	DefaultTransmitTimeout = 5000 // µs
	DefaultHighLimit       = 255
	DefaultFilterWindow    = 800 // 10 µs at an 80 MHz filter clock
	DefaultResponseLen     = 2
	DefaultStatusEvery     = 100
	DefaultSimBits         = 12

	maxNameLen = 16
	appID      = "can-daq-node"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// NODE IDENTITY
	// ------------------------------------------------------------

	if cfg.Node.Name == "" {
		cfg.Node.Name = defaultName()
	}
	if len(cfg.Node.Name) > maxNameLen {
		cfg.Node.Name = cfg.Node.Name[:maxNameLen]
	}

	// ------------------------------------------------------------
	// BUS
	// ------------------------------------------------------------

	b := &cfg.Bus
	if b.Backend == "" {
		b.Backend = "loopback"
	}
	if b.Bitrate == 0 {
		b.Bitrate = DefaultBitrate
	}
	if b.SelfReception == nil {
		on := true
		b.SelfReception = &on
	}
	if b.TransmitTimeoutUs == 0 {
		b.TransmitTimeoutUs = DefaultTransmitTimeout
	}

	// ------------------------------------------------------------
	// FRAMES
	// ------------------------------------------------------------

	if cfg.Frame.ID == nil {
		id := uint32(DefaultFrameID)
		cfg.Frame.ID = &id
	}
	if cfg.Frame.PressureMode == "" {
		cfg.Frame.PressureMode = "none"
	}
	// Accept exactly the data identifier unless told otherwise.
	if b.AcceptID == nil {
		id := *cfg.Frame.ID
		b.AcceptID = &id
	}
	if b.AcceptMask == nil {
		mask := uint32(0x7FF)
		b.AcceptMask = &mask
	}

	// ------------------------------------------------------------
	// CYCLE
	// ------------------------------------------------------------

	c := &cfg.Cycle
	if c.PeriodUs == 0 {
		c.PeriodUs = DefaultPeriodUs
	}
	if c.ReadTimeoutUs == 0 && DefaultReadTimeoutUs < c.PeriodUs {
		c.ReadTimeoutUs = DefaultReadTimeoutUs
	}
	if c.AcquisitionFailure == "" {
		c.AcquisitionFailure = "zero"
	}
	if c.Timer == "" {
		c.Timer = "sim"
	}

	if cfg.Status != nil && cfg.Status.EveryCycles == 0 {
		cfg.Status.EveryCycles = DefaultStatusEvery
	}

	// ------------------------------------------------------------
	// SENSORS
	// ------------------------------------------------------------

	if v := cfg.Sensors.Voltage; v != nil {
		if v.Backend == "" {
			v.Backend = "sim"
		}
		if v.SimBits == 0 {
			v.SimBits = DefaultSimBits
		}
		if v.Backend == "iio" && v.Device == "" {
			v.Device = "/sys/bus/iio/devices/iio:device0"
		}
	}

	if p := cfg.Sensors.Pulses; p != nil {
		if p.Backend == "" {
			p.Backend = "sim"
		}
		if p.HighLimit == nil {
			l := uint16(DefaultHighLimit)
			p.HighLimit = &l
		}
		if p.FilterWindow == nil {
			w := uint32(DefaultFilterWindow)
			p.FilterWindow = &w
		}
		if p.Backend == "counter" && p.Device == "" {
			p.Device = "/sys/bus/counter/devices/counter0"
		}
	}

	if p := cfg.Sensors.Pressure; p != nil {
		if p.Backend == "" {
			p.Backend = "sim"
		}
		if p.ResponseLen == 0 {
			p.ResponseLen = DefaultResponseLen
		}
		if p.Backend == "i2cdev" && p.Device == "" {
			p.Device = "/dev/i2c-1"
		}
		if m := p.Modbus; m != nil {
			if m.BaudRate == 0 {
				m.BaudRate = 115200
			}
			if m.DataBits == 0 {
				m.DataBits = 8
			}
			if m.Parity == "" {
				m.Parity = "N"
			}
			if m.StopBits == 0 {
				m.StopBits = 1
			}
			if m.TimeoutMs == 0 {
				m.TimeoutMs = 8
			}
			if m.Registers == "" {
				m.Registers = "input"
			}
		}
	}

	if e := cfg.Sensors.External; e != nil {
		if e.Backend == "" {
			e.Backend = "sim"
		}
		if e.SpeedHz == 0 {
			e.SpeedHz = 1_000_000
		}
	}
}

// defaultName derives a stable per-machine name without exposing the raw id.
func defaultName() string {
	if id, err := machineid.ProtectedID(appID); err == nil && len(id) >= 8 {
		return "node-" + id[:8]
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "daqnode"
}
