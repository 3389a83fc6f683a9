package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"avaneesh/dnp3-tester/internal/points"
)

// PointConfig describes one configured point
type PointConfig struct {
	Index       uint16   `json:"index" yaml:"index"`
	Name        string   `json:"name" yaml:"name"`
	Description *string  `json:"description,omitempty" yaml:"description,omitempty"`
	Unit        *string  `json:"unit,omitempty" yaml:"unit,omitempty"`
	Scale       *float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// DeviceConfiguration is a device's point list grouped by type
type DeviceConfiguration struct {
	Name          *string       `json:"name,omitempty" yaml:"name,omitempty"`
	BinaryInputs  []PointConfig `json:"binary_inputs,omitempty" yaml:"binary_inputs,omitempty"`
	BinaryOutputs []PointConfig `json:"binary_outputs,omitempty" yaml:"binary_outputs,omitempty"`
	AnalogInputs  []PointConfig `json:"analog_inputs,omitempty" yaml:"analog_inputs,omitempty"`
	AnalogOutputs []PointConfig `json:"analog_outputs,omitempty" yaml:"analog_outputs,omitempty"`
	Counters      []PointConfig `json:"counters,omitempty" yaml:"counters,omitempty"`
}

// Points expands the configuration into Offline points with value 0, grouped in
// the order binary inputs, binary outputs, analog inputs, analog outputs, counters
func (d *DeviceConfiguration) Points() []points.DataPoint {
	now := time.Now()
	var out []points.DataPoint
	add := func(typ points.Type, list []PointConfig) {
		for _, pc := range list {
			out = append(out, points.DataPoint{
				Type:      typ,
				Index:     pc.Index,
				Name:      pc.Name,
				Quality:   points.Offline,
				Timestamp: now,
			})
		}
	}
	add(points.BinaryInput, d.BinaryInputs)
	add(points.BinaryOutput, d.BinaryOutputs)
	add(points.AnalogInput, d.AnalogInputs)
	add(points.AnalogOutput, d.AnalogOutputs)
	add(points.Counter, d.Counters)
	return out
}

// DisplayName returns the configured name or "unnamed"
func (d *DeviceConfiguration) DisplayName() string {
	if d.Name == nil || *d.Name == "" {
		return "unnamed"
	}
	return *d.Name
}

// ParseDevice decodes a device configuration. YAML is used for .yaml and .yml
// names, JSON otherwise.
func ParseDevice(name string, data []byte) (*DeviceConfiguration, error) {
	var dev DeviceConfiguration
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &dev); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &dev); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	}
	return &dev, nil
}

// LoadDevice reads and decodes a device configuration file
func LoadDevice(path string) (*DeviceConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read device config: %w", err)
	}
	return ParseDevice(path, data)
}
