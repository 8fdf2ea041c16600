// internal/config/validate.go
package config

import (
	"github.com/tamzrod/can-daq-node/internal/bus"
	"github.com/tamzrod/can-daq-node/internal/frame"
	"github.com/tamzrod/can-daq-node/internal/scheduler"
	"github.com/tamzrod/can-daq-node/internal/sensor"
)

// Supported bus bit rates. Zero selects the default.
var bitrates = map[int]bool{0: true, 125000: true, 250000: true, 500000: true, 1000000: true}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Every failure is a *ConfigurationError.
func Validate(cfg *Config) error {
	if cfg == nil {
		return invalid("", "missing configuration")
	}

	// device_name sanity (ASCII only)
	for i := 0; i < len(cfg.Node.Name); i++ {
		if cfg.Node.Name[i] > 0x7F {
			return invalid("node.name", "must contain ASCII characters only")
		}
	}

	if err := validateBus(&cfg.Bus); err != nil {
		return err
	}
	if err := validateCycle(&cfg.Cycle); err != nil {
		return err
	}
	if err := validateSensors(&cfg.Sensors); err != nil {
		return err
	}
	return validateFrames(cfg)
}

func validateBus(b *BusConfig) error {
	switch b.Backend {
	case "", "loopback":
	case "socketcan":
		if b.Interface == "" {
			return invalid("bus.interface", "required for socketcan")
		}
	default:
		return invalid("bus.backend", "unknown backend %q", b.Backend)
	}
	if !bitrates[b.Bitrate] {
		return invalid("bus.bitrate", "unsupported bit rate %d", b.Bitrate)
	}
	if b.AcceptID != nil && *b.AcceptID > bus.MaxStdID {
		return invalid("bus.accept_id", "0x%X exceeds 11 bits", *b.AcceptID)
	}
	if b.AcceptMask != nil && *b.AcceptMask > bus.MaxStdID {
		return invalid("bus.accept_mask", "0x%X exceeds 11 bits", *b.AcceptMask)
	}
	if b.TransmitTimeoutUs < 0 {
		return invalid("bus.transmit_timeout_us", "must be >= 0")
	}
	return nil
}

func validateCycle(c *CycleConfig) error {
	if c.PeriodUs < 0 {
		return invalid("cycle.period_us", "must be > 0")
	}
	if c.ReadTimeoutUs < 0 {
		return invalid("cycle.read_timeout_us", "must be >= 0")
	}
	if c.PeriodUs > 0 && c.ReadTimeoutUs >= c.PeriodUs {
		return invalid("cycle.read_timeout_us", "must be shorter than the period")
	}
	if _, err := scheduler.ParseFailurePolicy(c.AcquisitionFailure); err != nil {
		return invalid("cycle.acquisition_failure", "%v", err)
	}
	switch c.Timer {
	case "", "sim", "timerfd":
	default:
		return invalid("cycle.timer", "unknown timer %q", c.Timer)
	}
	return nil
}

func validateSensors(s *SensorsConfig) error {
	if v := s.Voltage; v != nil {
		switch v.Backend {
		case "", "sim", "iio":
		default:
			return invalid("sensors.voltage.backend", "unknown backend %q", v.Backend)
		}
		if v.SimBits > 16 {
			return invalid("sensors.voltage.sim_bits", "must be <= 16")
		}
	}

	if p := s.Pulses; p != nil {
		switch p.Backend {
		case "", "sim", "counter":
		default:
			return invalid("sensors.pulses.backend", "unknown backend %q", p.Backend)
		}
		// filter_window above the unit maximum is clamped later, never rejected.
		if p.HighLimit != nil && *p.HighLimit == 0 {
			return invalid("sensors.pulses.high_limit", "must be > 0")
		}
		if p.SimHz < 0 {
			return invalid("sensors.pulses.sim_hz", "must be >= 0")
		}
	}

	if p := s.Pressure; p != nil {
		if len(p.Command) == 0 {
			return invalid("sensors.pressure.command", "at least one byte required")
		}
		if p.ResponseLen < 0 || p.ResponseLen > sensor.MaxPressureBytes {
			return invalid("sensors.pressure.response_len", "must be 1..%d", sensor.MaxPressureBytes)
		}
		switch p.Backend {
		case "", "sim", "i2cdev":
			if p.Address > 0x7F {
				return invalid("sensors.pressure.address", "0x%X exceeds 7 bits", p.Address)
			}
		case "modbus":
			if p.Modbus == nil || p.Modbus.Port == "" {
				return invalid("sensors.pressure.modbus.port", "required for modbus")
			}
			if p.Address == 0 || p.Address > 247 {
				return invalid("sensors.pressure.address", "modbus slave id must be 1..247")
			}
			if len(p.Command) != 2 {
				return invalid("sensors.pressure.command", "modbus command is a 2-byte register address")
			}
			if p.ResponseLen%2 != 0 {
				return invalid("sensors.pressure.response_len", "modbus responses are whole registers")
			}
			switch p.Modbus.Parity {
			case "", "N", "E", "O":
			default:
				return invalid("sensors.pressure.modbus.parity", "unknown parity %q", p.Modbus.Parity)
			}
			switch p.Modbus.Registers {
			case "", "input", "holding":
			default:
				return invalid("sensors.pressure.modbus.registers", "unknown register table %q", p.Modbus.Registers)
			}
		default:
			return invalid("sensors.pressure.backend", "unknown backend %q", p.Backend)
		}
	}

	if e := s.External; e != nil {
		switch e.Backend {
		case "", "sim":
		case "spidev":
			if e.Device == "" {
				return invalid("sensors.external.device", "required for spidev")
			}
			if e.CSGPIO == nil {
				return invalid("sensors.external.cs_gpio", "required for spidev")
			}
		default:
			return invalid("sensors.external.backend", "unknown backend %q", e.Backend)
		}
	}
	return nil
}

func validateFrames(cfg *Config) error {
	mode, err := frame.ParsePressureMode(cfg.Frame.PressureMode)
	if err != nil {
		return invalid("frame.pressure_mode", "%v", err)
	}
	if mode != frame.PressureNone && cfg.Sensors.Pressure == nil {
		return invalid("frame.pressure_mode", "%s requires sensors.pressure", mode)
	}
	if mode == frame.PressurePacked && cfg.Sensors.Pressure.ResponseLen == 1 {
		return invalid("frame.pressure_mode", "packed requires a response of at least 2 bytes")
	}

	// key = CAN identifier, value = owner
	owners := make(map[uint32]string)
	claim := func(field string, id uint32) error {
		if id > bus.MaxStdID {
			return invalid(field, "0x%X exceeds the 11-bit identifier range", id)
		}
		if prev, ok := owners[id]; ok {
			return invalid(field, "identifier 0x%03X already used by %s", id, prev)
		}
		owners[id] = field
		return nil
	}

	dataID := uint32(DefaultFrameID)
	if cfg.Frame.ID != nil {
		dataID = *cfg.Frame.ID
	}
	if err := claim("frame.id", dataID); err != nil {
		return err
	}

	if mode == frame.PressureSeparate {
		if cfg.Frame.PressureID == nil {
			return invalid("frame.pressure_id", "required for separate pressure frames")
		}
		if err := claim("frame.pressure_id", *cfg.Frame.PressureID); err != nil {
			return err
		}
	}

	if cfg.Status != nil {
		if err := claim("status.id", cfg.Status.ID); err != nil {
			return err
		}
	}
	return nil
}
