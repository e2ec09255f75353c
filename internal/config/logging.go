package config

// LoggingInfo contains logging configuration shared by both binaries.
type LoggingInfo struct {
	Level  string `yaml:"level"`  // default "info"
	Format string `yaml:"format"` // default "json"
}
