package config

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level,omitempty"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format,omitempty"` // console, json
}

// IsJSON reports whether log lines should be emitted as JSON.
func (c *LoggingConfig) IsJSON() bool {
	return c.Format == "json"
}
