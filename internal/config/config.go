// Package config handles converter configuration loading and management.
package config

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/polyweld/pkg/meshio"
	"github.com/Faultbox/polyweld/pkg/polymesh"
	"github.com/Faultbox/polyweld/pkg/weld"
)

// Config holds all converter settings.
type Config struct {
	Remesh  RemeshConfig  `yaml:"remesh"`
	Weld    WeldConfig    `yaml:"weld"`
	Output  OutputConfig  `yaml:"output"`
	Catalog CatalogConfig `yaml:"catalog"`
	Logging LoggingConfig `yaml:"logging"`
}

// RemeshConfig controls polygon merging.
type RemeshConfig struct {
	Threshold float32 `yaml:"threshold"`  // normal dot product above which faces merge
	MaxPasses int     `yaml:"max_passes"` // 1 = single pass
}

// WeldConfig controls vertex welding before adjacency is built.
type WeldConfig struct {
	Enabled bool    `yaml:"enabled"`
	Epsilon float32 `yaml:"epsilon"`
}

// OutputConfig controls where and how meshes are written.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"` // json or pb
	Indent int    `yaml:"indent"`
}

// CatalogConfig enables the SQLite catalog of converted meshes.
type CatalogConfig struct {
	Path string `yaml:"path"` // empty disables the catalog
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Remesh: RemeshConfig{
			Threshold: polymesh.DefaultCoplanarThreshold,
			MaxPasses: 1,
		},
		Weld: WeldConfig{
			Enabled: true,
			Epsilon: weld.DefaultEpsilon,
		},
		Output: OutputConfig{
			Dir:    ".",
			Format: string(meshio.FormatJSON),
			Indent: 2,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if c.Remesh.Threshold <= -1 || c.Remesh.Threshold > 1 {
		err = multierr.Append(err, fmt.Errorf("remesh.threshold %g outside (-1, 1]", c.Remesh.Threshold))
	}
	if c.Remesh.MaxPasses < 1 {
		err = multierr.Append(err, fmt.Errorf("remesh.max_passes %d must be at least 1", c.Remesh.MaxPasses))
	}
	if c.Weld.Epsilon < 0 {
		err = multierr.Append(err, fmt.Errorf("weld.epsilon %g must not be negative", c.Weld.Epsilon))
	}
	if _, ferr := meshio.ParseFormat(c.Output.Format); ferr != nil {
		err = multierr.Append(err, fmt.Errorf("output.format: %w", ferr))
	}
	if c.Output.Indent < 0 || c.Output.Indent > 8 {
		err = multierr.Append(err, fmt.Errorf("output.indent %d outside [0, 8]", c.Output.Indent))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	return err
}
