// Package config provides configuration loading and management for stackview.
// It handles loading configuration from YAML files, applies STACKVIEW_*
// environment overrides and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Projection parameters
	Projection struct {
		// DefaultOperation is the operation displayed before any selection
		DefaultOperation string `yaml:"defaultOperation" env:"STACKVIEW_DEFAULT_OPERATION"`

		// Sigma is the Gaussian Filter standard deviation in pixels
		Sigma float64 `yaml:"sigma" env:"STACKVIEW_SIGMA"`

		// KernelSize is the box width of the High and Low Pass Filters
		KernelSize int `yaml:"kernelSize" env:"STACKVIEW_KERNEL_SIZE"`

		// FilterBase is the reduction the spatial filters are applied to
		FilterBase string `yaml:"filterBase" env:"STACKVIEW_FILTER_BASE"`
	} `yaml:"projection"`

	// Server parameters for the browser display
	Server struct {
		// Addr is the listen address, e.g. ":8080"
		Addr string `yaml:"addr" env:"STACKVIEW_ADDR"`
	} `yaml:"server"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose" env:"STACKVIEW_VERBOSE"`

		// LogDir, when set, mirrors log output to files in this directory
		LogDir string `yaml:"logDir" env:"STACKVIEW_LOG_DIR"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Projection.DefaultOperation = "Max Projection"
	cfg.Projection.Sigma = 2.0
	cfg.Projection.KernelSize = 5
	cfg.Projection.FilterBase = "Mean Projection"

	cfg.Server.Addr = ":8080"

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file and then applies
// environment overrides. If the file doesn't exist, the defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("error reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
