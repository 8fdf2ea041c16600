// internal/sensor/voltage.go
package sensor

import (
	"context"

	"github.com/tamzrod/can-daq-node/internal/hal"
)

// Voltage samples one analog channel with a single-shot conversion.
// Attenuation and calibration are fixed by the driver at bring-up.
type Voltage struct {
	adc     hal.ADC
	channel uint8
}

func NewVoltage(adc hal.ADC, channel uint8) *Voltage {
	return &Voltage{adc: adc, channel: channel}
}

func (v *Voltage) Field() Field { return FieldVoltage }

func (v *Voltage) Acquire(ctx context.Context) (Reading, error) {
	code, err := v.adc.ReadOneShot(ctx, v.channel)
	if err != nil {
		return Reading{}, fail(FieldVoltage, err)
	}
	return Reading{Code: code}, nil
}
