// Package config loads the resource table and scheduler options from YAML.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-hls/pkg/cdfg"
	"github.com/raymyers/ralph-hls/pkg/schedule"
)

// ErrInvalidConfig reports an unusable configuration.
var ErrInvalidConfig = errors.New("invalid config")

// Override replaces the units and/or latency of one kind.
// Absent fields keep the default.
type Override struct {
	Units   *int `yaml:"units,omitempty"`
	Latency *int `yaml:"latency,omitempty"`
}

// Config is the on-disk configuration:
//
//	resources:
//	  MUL: {units: 2, latency: 5}
//	scheduler:
//	  order_terminators: true
//	  memory_order: false
//
// Resource keys are kind mnemonics or numeric kind codes.
type Config struct {
	Resources map[string]Override `yaml:"resources,omitempty"`
	Scheduler schedule.Options    `yaml:"scheduler"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Scheduler: schedule.DefaultOptions()}
}

// Load reads and parses a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, "%v", path)
	}
	return c, nil
}

// Parse decodes data on top of Default and validates it.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, "%v", err)
	}
	if _, err := c.ResourceTable(); err != nil {
		return nil, err
	}
	return c, nil
}

// ResourceTable applies the overrides to the default table.
func (c *Config) ResourceTable() (cdfg.ResourceTable, error) {
	t := cdfg.DefaultResources()
	seen := make(map[cdfg.OpKind]string, len(c.Resources))
	for name, o := range c.Resources {
		k, err := cdfg.ParseOpKind(name)
		if err != nil {
			return t, errors.Wrap(ErrInvalidConfig, "resources: %v", err)
		}
		if prev, ok := seen[k]; ok {
			return t, errors.Wrap(ErrInvalidConfig, "resources: %v given as %q and %q", k, prev, name)
		}
		seen[k] = name
		if o.Units != nil {
			t[k].Units = *o.Units
		}
		if o.Latency != nil {
			t[k].Latency = *o.Latency
		}
	}
	if err := t.Validate(); err != nil {
		return t, errors.Wrap(ErrInvalidConfig, "resources: %v", err)
	}
	return t, nil
}

// Set overrides one kind.
func (c *Config) Set(k cdfg.OpKind, units, latency int) {
	if c.Resources == nil {
		c.Resources = make(map[string]Override)
	}
	c.Resources[k.String()] = Override{Units: &units, Latency: &latency}
}
