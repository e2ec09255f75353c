package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProcessorConfig is the full configuration for cmd/processor.
type ProcessorConfig struct {
	Processor ProcessorInfo  `yaml:"processor"`
	Server    ServerAddr     `yaml:"server"`
	Ingress   IngressInfo    `yaml:"ingress"`
	Validator ValidatorInfo  `yaml:"validator"`
	Archive   ArchiveInfo    `yaml:"archive"`
	Logging   LoggingInfo    `yaml:"logging"`
}

// ProcessorInfo identifies this processor instance in logs.
type ProcessorInfo struct {
	Name string `yaml:"name"`
}

// ServerAddr is the distributer's control-port address. The reference
// implementation hard-codes "0.0.0.0:8080"; here it is configurable.
type ServerAddr struct {
	Address string `yaml:"address"` // default "127.0.0.1:8080"
}

// IngressInfo configures the inbound data-plane listener.
type IngressInfo struct {
	PortMin int `yaml:"port_min"` // default 6000
	PortMax int `yaml:"port_max"` // default 9000 (exclusive)
}

// ValidatorInfo configures the validator worker pool.
type ValidatorInfo struct {
	Workers int `yaml:"workers"` // 0 = auto: max(1, cores/2)
}

// ArchiveInfo configures the optional S3 archival sink.
type ArchiveInfo struct {
	Enabled       bool          `yaml:"enabled"`
	Bucket        string        `yaml:"bucket"`
	Prefix        string        `yaml:"prefix"`
	FlushInterval time.Duration `yaml:"flush_interval"` // default 30s
	FlushCount    int           `yaml:"flush_count"`     // default 5000 records
}

// LoadProcessorConfig reads and validates path.
func LoadProcessorConfig(path string) (*ProcessorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading processor config: %w", err)
	}

	var cfg ProcessorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing processor config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating processor config: %w", err)
	}
	return &cfg, nil
}

func (c *ProcessorConfig) applyDefaults() {
	if c.Processor.Name == "" {
		c.Processor.Name = "processor"
	}
	if c.Server.Address == "" {
		c.Server.Address = "127.0.0.1:8080"
	}
	if c.Ingress.PortMin == 0 {
		c.Ingress.PortMin = 6000
	}
	if c.Ingress.PortMax == 0 {
		c.Ingress.PortMax = 9000
	}
	if c.Archive.FlushInterval <= 0 {
		c.Archive.FlushInterval = 30 * time.Second
	}
	if c.Archive.FlushCount <= 0 {
		c.Archive.FlushCount = 5000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

func (c *ProcessorConfig) validate() error {
	if c.Ingress.PortMin <= 0 || c.Ingress.PortMax <= c.Ingress.PortMin {
		return fmt.Errorf("ingress.port_min/port_max must describe a non-empty range, got [%d, %d)", c.Ingress.PortMin, c.Ingress.PortMax)
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when archive.enabled is true")
	}
	return nil
}
