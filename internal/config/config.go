// Package config loads the process-wide traffic recording configuration.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the file omits the corresponding field.
const (
	DefaultMaxFileSize uint64 = 100 << 20
	DefaultBufferSize  uint64 = 16 << 20
)

// Config is the top-level configuration document.
type Config struct {
	Recording RecordingConfig `yaml:"recording"`
}

// RecordingConfig configures the traffic recorder. An empty Directory
// means recording is disabled.
type RecordingConfig struct {
	Directory          string `yaml:"directory"`
	DefaultMaxFileSize uint64 `yaml:"defaultMaxFileSize"`
	DefaultBufferSize  uint64 `yaml:"defaultBufferSize"`
}

// Load parses a configuration from the given reader with strict field
// validation. Unknown fields in the YAML will cause an error.
func Load(r io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty configuration file")
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFile loads a configuration from the given file path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path) //nolint:gosec // file path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Load(f)
}

func (c *Config) applyDefaults() {
	if c.Recording.DefaultMaxFileSize == 0 {
		c.Recording.DefaultMaxFileSize = DefaultMaxFileSize
	}
	if c.Recording.DefaultBufferSize == 0 {
		c.Recording.DefaultBufferSize = DefaultBufferSize
	}
}

// Validate checks that the configured recording directory, when set,
// exists and is a directory.
func (c *Config) Validate() error {
	dir := c.Recording.Directory
	if dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("traffic recording directory %q is not accessible: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("traffic recording directory %q is not a directory", dir)
	}
	return nil
}
