package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the command looks for a config file when --config is not given.
const DefaultPath = ".quotefix.yaml"

// Config holds all quotefix configuration.
type Config struct {
	// Directory walked for candidate files
	RootDirectory string `yaml:"root_directory"`

	// Filename suffixes that select candidate files (case-sensitive)
	Extensions []string `yaml:"extensions"`

	// Files normalized concurrently; 1 or less means strictly sequential
	Workers int `yaml:"workers"`

	// Watch mode
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// WatchConfig configures `quotefix watch`.
type WatchConfig struct {
	Debounce string `yaml:"debounce"` // quiet period before a changed file is normalized
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		RootDirectory: "src/tools",
		Extensions:    []string{".ts", ".tsx"},
		Workers:       1,
		Watch: WatchConfig{
			Debounce: "200ms",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Missing file: defaults plus environment
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if root := os.Getenv("QUOTEFIX_ROOT"); root != "" {
		c.RootDirectory = root
	}
	if exts := os.Getenv("QUOTEFIX_EXTENSIONS"); exts != "" {
		c.Extensions = splitList(exts)
	}
	if workers := os.Getenv("QUOTEFIX_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			c.Workers = n
		}
	}
	if level := os.Getenv("QUOTEFIX_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate reports the first setting that would make a run meaningless.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RootDirectory) == "" {
		return fmt.Errorf("root_directory must not be empty")
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions must list at least one suffix")
	}
	for i, ext := range c.Extensions {
		if ext == "" {
			return fmt.Errorf("extensions[%d] is empty", i)
		}
	}
	return nil
}

// GetDebounce returns the watch debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 200 * time.Millisecond
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
