// internal/bus/socketcan.go
package bus

// SocketCANConfig configures a SocketCAN raw controller.
type SocketCANConfig struct {
	Interface     string // e.g. "can0", "vcan0"
	SelfReception bool
	AcceptID      uint32
	AcceptMask    uint32 // zero accepts every standard frame
}
