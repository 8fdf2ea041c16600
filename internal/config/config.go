// internal/config/config.go
package config

type Config struct {
	Node    NodeConfig    `yaml:"node"`
	Bus     BusConfig     `yaml:"bus"`
	Frame   FrameConfig   `yaml:"frame"`
	Cycle   CycleConfig   `yaml:"cycle"`
	Status  *StatusConfig `yaml:"status"` // optional, opt-in
	Sensors SensorsConfig `yaml:"sensors"`
}

// ---- NODE ----

type NodeConfig struct {
	// Name identifies the node in logs. Defaults to a machine-derived id.
	Name string `yaml:"name"`
}

// ---- BUS ----

type BusConfig struct {
	Backend       string `yaml:"backend"`   // loopback | socketcan
	Interface     string `yaml:"interface"` // socketcan only
	Bitrate       int    `yaml:"bitrate"`
	SelfReception *bool  `yaml:"self_reception"`

	// Acceptance filter on the receive path.
	AcceptID   *uint32 `yaml:"accept_id"`
	AcceptMask *uint32 `yaml:"accept_mask"`

	TransmitTimeoutUs int `yaml:"transmit_timeout_us"`

	// LogFrames logs every frame at glog V(3).
	LogFrames bool `yaml:"log_frames"`
}

// ---- FRAME ----

type FrameConfig struct {
	ID           *uint32 `yaml:"id"`
	PressureMode string  `yaml:"pressure_mode"` // none | packed | separate
	PressureID   *uint32 `yaml:"pressure_id"`   // separate only
}

// ---- CYCLE ----

type CycleConfig struct {
	PeriodUs           int    `yaml:"period_us"`
	ReadTimeoutUs      int    `yaml:"read_timeout_us"`
	AcquisitionFailure string `yaml:"acquisition_failure"` // zero | skip
	Timer              string `yaml:"timer"`               // sim | timerfd
}

// ---- STATUS FRAME ----

type StatusConfig struct {
	ID          uint32 `yaml:"id"`
	EveryCycles uint32 `yaml:"every_cycles"`
}

// ---- SENSORS ----
// A nil sensor is not fitted; its payload bytes stay zero.

type SensorsConfig struct {
	Voltage  *VoltageConfig  `yaml:"voltage"`
	Pulses   *PulsesConfig   `yaml:"pulses"`
	Pressure *PressureConfig `yaml:"pressure"`
	External *ExternalConfig `yaml:"external"`
}

type VoltageConfig struct {
	Backend string `yaml:"backend"` // sim | iio
	Channel uint8  `yaml:"channel"`
	Device  string `yaml:"device"` // iio device directory

	SimBits uint8  `yaml:"sim_bits"`
	SimCode uint16 `yaml:"sim_code"`
}

type PulsesConfig struct {
	Backend      string  `yaml:"backend"` // sim | counter
	HighLimit    *uint16 `yaml:"high_limit"`
	FilterWindow *uint32 `yaml:"filter_window"` // clamped to the unit maximum
	CountFalling bool    `yaml:"count_falling"`
	Device       string  `yaml:"device"` // counter device directory

	// Simulated stimulus on the counter input.
	SimHz    float64 `yaml:"sim_hz"`
	SimWidth uint16  `yaml:"sim_width"`
}

type PressureConfig struct {
	Backend     string  `yaml:"backend"` // sim | i2cdev | modbus
	Address     uint8   `yaml:"address"`
	Command     []uint8 `yaml:"command"`
	ResponseLen int     `yaml:"response_len"`
	Device      string  `yaml:"device"` // i2c-dev node

	Modbus *ModbusConfig `yaml:"modbus"`

	SimResponse []uint8 `yaml:"sim_response"`
}

type ModbusConfig struct {
	Port      string `yaml:"port"`
	BaudRate  int    `yaml:"baud_rate"`
	DataBits  int    `yaml:"data_bits"`
	Parity    string `yaml:"parity"` // N | E | O
	StopBits  int    `yaml:"stop_bits"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Registers string `yaml:"registers"` // input | holding
}

type ExternalConfig struct {
	Backend      string `yaml:"backend"` // sim | spidev
	Device       string `yaml:"device"`
	SpeedHz      uint32 `yaml:"speed_hz"`
	CSGPIO       *int   `yaml:"cs_gpio"`
	CSActiveHigh bool   `yaml:"cs_active_high"`

	SimCode uint16 `yaml:"sim_code"`
}
