// internal/config/errors.go
package config

import (
	"fmt"

	"github.com/tamzrod/can-daq-node/internal/status"
)

// ConfigurationError is an invalid start-up value. It is always fatal:
// the node must not enter the cycle loop with it.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Code() uint16 { return status.CodeConfiguration }

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Err: fmt.Errorf(format, args...)}
}
