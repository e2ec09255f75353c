// Package config loads and validates the YAML configuration for both
// binaries: defaults are filled in once on load rather than scattered
// across call sites.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DistributerConfig is the full configuration for cmd/distributer.
type DistributerConfig struct {
	Admission AdmissionInfo `yaml:"admission"`
	Source    SourceInfo    `yaml:"source"`
	Driver    DriverInfo    `yaml:"driver"`
	Heartbeat HeartbeatInfo `yaml:"heartbeat"`
	Logging   LoggingInfo   `yaml:"logging"`
}

// AdmissionInfo configures the control-port listener processors connect
// to.
type AdmissionInfo struct {
	Listen string `yaml:"listen"` // default ":8080"
}

// SourceInfo configures the relational store the paged reader scans.
type SourceInfo struct {
	Driver string `yaml:"driver"` // database/sql driver name, default "sqlite"
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"` // default "netflow"
}

// DriverInfo configures the driver loop's scan cadence.
type DriverInfo struct {
	TickInterval time.Duration `yaml:"tick_interval"` // default 5s
}

// HeartbeatInfo configures the heartbeat supervisor.
type HeartbeatInfo struct {
	Interval       time.Duration `yaml:"interval"`        // default 5s
	DialTimeout    time.Duration `yaml:"dial_timeout"`    // default 2s
	ResponseBudget time.Duration `yaml:"response_budget"` // default 2s
}

// LoadDistributerConfig reads and validates path.
func LoadDistributerConfig(path string) (*DistributerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading distributer config: %w", err)
	}

	var cfg DistributerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing distributer config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating distributer config: %w", err)
	}
	return &cfg, nil
}

func (c *DistributerConfig) applyDefaults() {
	if c.Admission.Listen == "" {
		c.Admission.Listen = ":8080"
	}
	if c.Source.Driver == "" {
		c.Source.Driver = "sqlite"
	}
	if c.Source.Table == "" {
		c.Source.Table = "netflow"
	}
	if c.Driver.TickInterval <= 0 {
		c.Driver.TickInterval = 5 * time.Second
	}
	if c.Heartbeat.Interval <= 0 {
		c.Heartbeat.Interval = 5 * time.Second
	}
	if c.Heartbeat.DialTimeout <= 0 {
		c.Heartbeat.DialTimeout = 2 * time.Second
	}
	if c.Heartbeat.ResponseBudget <= 0 {
		c.Heartbeat.ResponseBudget = 2 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

func (c *DistributerConfig) validate() error {
	if c.Source.DSN == "" {
		return fmt.Errorf("source.dsn is required")
	}
	return nil
}
