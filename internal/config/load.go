// internal/config/load.go
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config. Unknown keys are rejected.
// An empty file yields an all-defaults config.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a YAML config from r.
func Decode(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigurationError{Err: fmt.Errorf("parse: %w", err)}
	}
	return &cfg, nil
}
