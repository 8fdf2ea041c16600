// internal/hal/modbus/transactor.go
package modbus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// registerReader is the subset of modbus.Client the transactor needs.
type registerReader interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)   // FC 4
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error) // FC 3
}

// Config is the RTU line config.
type Config struct {
	Port     string
	BaudRate int
	DataBits int
	Parity   string // N | E | O
	StopBits int
	Timeout  time.Duration
	Holding  bool // read holding (FC 3) instead of input (FC 4) registers
}

// Transactor serves request/response reads from a Modbus RTU device,
// so a pressure transmitter on RS-485 can stand where an I2C sensor would.
//
// The transaction maps as:
//
//	addr      slave id
//	cmd       2-byte register address, big-endian
//	n         response bytes, two per register
//
// It serializes requests because it mutates SlaveId per transaction.
type Transactor struct {
	mu      sync.Mutex
	handler *modbus.RTUClientHandler
	client  registerReader
	holding bool
}

func New(cfg Config) (*Transactor, error) {
	if cfg.Port == "" {
		return nil, errors.New("modbus rtu: port required")
	}

	h := modbus.NewRTUClientHandler(cfg.Port)
	h.BaudRate = cfg.BaudRate
	h.DataBits = cfg.DataBits
	h.Parity = cfg.Parity
	h.StopBits = cfg.StopBits
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus rtu %s: %w", cfg.Port, err)
	}

	return &Transactor{
		handler: h,
		client:  modbus.NewClient(h),
		holding: cfg.Holding,
	}, nil
}

func (t *Transactor) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handler == nil {
		return nil
	}
	return t.handler.Close()
}

func (t *Transactor) Transact(ctx context.Context, addr uint8, cmd []byte, n int) ([]byte, error) {
	if len(cmd) != 2 {
		return nil, fmt.Errorf("modbus rtu: command must be a 2-byte register address, got %d bytes", len(cmd))
	}
	if n <= 0 || n%2 != 0 {
		return nil, fmt.Errorf("modbus rtu: response length %d is not whole registers", n)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handler != nil {
		t.handler.SlaveId = addr
	}

	reg := binary.BigEndian.Uint16(cmd)
	qty := uint16(n / 2)
	if t.holding {
		return t.client.ReadHoldingRegisters(reg, qty)
	}
	return t.client.ReadInputRegisters(reg, qty)
}
