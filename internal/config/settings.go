// Package config holds application settings, device point configurations and
// connection requests.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the application settings file
type Settings struct {
	Server  ServerSettings  `yaml:"server"`
	Logging LoggingSettings `yaml:"logging"`
	Device  DeviceSettings  `yaml:"device"`
	Capture CaptureSettings `yaml:"capture"`
}

// ServerSettings configures the HTTP API
type ServerSettings struct {
	Listen       string   `yaml:"listen"`
	AllowOrigins []string `yaml:"allow_origins,omitempty"`
}

// LoggingSettings configures console output
type LoggingSettings struct {
	Level string `yaml:"level"`
}

// DeviceSettings configures point table defaults
type DeviceSettings struct {
	// DefaultConfig is loaded into a session whose table is empty when it connects
	DefaultConfig string `yaml:"default_config"`
}

// CaptureSettings configures pcap export
type CaptureSettings struct {
	// Port used for the synthetic TCP header of exported frames
	TCPPort uint16 `yaml:"tcp_port"`
}

// DefaultSettings returns the built-in settings
func DefaultSettings() *Settings {
	return &Settings{
		Server: ServerSettings{
			Listen:       "127.0.0.1:8080",
			AllowOrigins: []string{"*"},
		},
		Logging: LoggingSettings{Level: "info"},
		Device:  DeviceSettings{DefaultConfig: "default_config.json"},
		Capture: CaptureSettings{TCPPort: 20000},
	}
}

// LoadSettings reads a YAML settings file over the defaults. A missing file
// yields the defaults when allowMissing is set.
func LoadSettings(path string, allowMissing bool) (*Settings, error) {
	cfg := DefaultSettings()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}
	return cfg, nil
}

// Validate checks required fields
func (s *Settings) Validate() error {
	if s.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if s.Capture.TCPPort == 0 {
		return fmt.Errorf("capture.tcp_port must be > 0")
	}
	return nil
}
