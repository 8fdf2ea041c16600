// internal/frame/plan.go
package frame

import "github.com/tamzrod/can-daq-node/internal/sensor"

// Message is one frame the node publishes per cycle.
type Message struct {
	Name string
	ID   uint32
	// Encode builds the payload and its length. ok=false skips the message this cycle.
	Encode func(s sensor.SampleSet) (p Payload, n uint8, ok bool)
}

// NewPlan returns the per-cycle messages in publish order.
// The data frame is always first and always full length.
func NewPlan(dataID uint32, mode PressureMode, pressureID uint32) []Message {
	plan := []Message{{
		Name: "data",
		ID:   dataID,
		Encode: func(s sensor.SampleSet) (Payload, uint8, bool) {
			return Assemble(s, mode), PayloadLen, true
		},
	}}

	if mode == PressureSeparate {
		plan = append(plan, Message{
			Name: "pressure",
			ID:   pressureID,
			Encode: func(s sensor.SampleSet) (Payload, uint8, bool) {
				if !s.Has(sensor.FieldPressure) {
					return Payload{}, 0, false
				}
				p, n := PressurePayload(s)
				return p, n, true
			},
		})
	}

	return plan
}
