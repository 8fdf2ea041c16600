//go:build !linux

// internal/bus/socketcan_other.go
package bus

import "errors"

// DialSocketCAN is only available on Linux.
func DialSocketCAN(cfg SocketCANConfig) (Controller, error) {
	return nil, errors.New("socketcan: not supported on this platform")
}
