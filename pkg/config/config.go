// Package config provides configuration loading and management for
// mprage-like. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML. It
// covers the optional knobs only; the subject id, contrast mode and image
// directory are always given on the command line.
type Config struct {
	// Synthesis parameters
	Synthesis struct {
		// Echo selects the acquisition echo via the "_eN" filename token
		Echo int `yaml:"echo"`

		// Reg is the regularization spec: a single integer like "100" or
		// a bracketed sweep like "[0, 100, 300]"
		Reg string `yaml:"reg"`
	} `yaml:"synthesis"`

	// Output parameters
	Output struct {
		// Dir is the save location; the mprage-like subfolder is created
		// inside it
		Dir string `yaml:"dir"`

		// Compress writes .nii.gz artifacts instead of .nii
		Compress bool `yaml:"compress"`

		// Previews saves orthogonal PNG slices alongside each artifact
		Previews bool `yaml:"previews"`

		// Verbose controls progress output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default synthesis parameters
	cfg.Synthesis.Echo = 1
	cfg.Synthesis.Reg = "100"

	// Save next to the working directory by default, like the original
	// workflow expects
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	cfg.Output.Dir = wd
	cfg.Output.Compress = false
	cfg.Output.Previews = false
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
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

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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
