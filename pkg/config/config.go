package config

import (
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

// FileNames are the configuration files looked up in every directory, in
// order of precedence within one directory
var FileNames = []string{"execroot.conf.yaml", "execroot.conf.yml", "execroot.conf.json"}

// DefaultProperty is the property goals publish into when nothing else is configured
const DefaultProperty = "dirProperty"

// Config represents the merged configuration from all execroot.conf files
type Config struct {
	// Property is the name of the property the resolved directory is published as
	Property string `json:"property,omitempty"`
	// Quiet suppresses the info log line of every resolution
	Quiet *bool `json:"quiet,omitempty"`
	// PathMode is auto, sensitive or insensitive
	PathMode string `json:"pathMode,omitempty"`
	// Canonicalize resolves symlinks in base directories
	Canonicalize *bool `json:"canonicalize,omitempty"`
	// StrictCommonRoot checks every base directory against the highest one
	StrictCommonRoot *bool `json:"strictCommonRoot,omitempty"`
	// Exclude lists groupId:artifactId glob patterns of modules to leave out
	Exclude []string `json:"exclude,omitempty"`
	// Parallel is the number of POM files parsed concurrently
	Parallel int `json:"parallel,omitempty"`
	// Properties are published alongside the resolved directory
	Properties map[string]string `json:"properties,omitempty"`
}

// LoadConfiguration loads and merges all execroot.conf files from the directory hierarchy
func LoadConfiguration(startDir string) (*Config, error) {
	config := &Config{
		Properties: make(map[string]string),
	}

	// Walk up the directory hierarchy looking for configuration files
	currentDir := startDir
	var configFiles []string

	for {
		if configPath, ok := findConfigFile(currentDir); ok {
			configFiles = append(configFiles, configPath)
		}

		// Move up one directory
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached filesystem root
			break
		}
		currentDir = parentDir
	}

	// Process config files from root to leaf (so leaf configs override parent configs)
	for i := len(configFiles) - 1; i >= 0; i-- {
		err := config.mergeConfigFile(configFiles[i])
		if err != nil {
			return nil, fmt.Errorf("failed to merge config file %s: %w", configFiles[i], err)
		}
	}

	return config, nil
}

// findConfigFile returns the first configuration file present in dir
func findConfigFile(dir string) (string, bool) {
	for _, name := range FileNames {
		configPath := filepath.Join(dir, name)
		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return configPath, true
		}
	}
	return "", false
}

// mergeConfigFile merges a single config file into the current configuration
func (c *Config) mergeConfigFile(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// YAML is a superset of JSON, so one decoder serves every file name
	var fileConfig Config
	if err := yaml.UnmarshalStrict(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	c.merge(&fileConfig)
	return nil
}

// merge overlays every field set in other onto c
func (c *Config) merge(other *Config) {
	if other.Property != "" {
		c.Property = other.Property
	}
	if other.Quiet != nil {
		c.Quiet = other.Quiet
	}
	if other.PathMode != "" {
		c.PathMode = other.PathMode
	}
	if other.Canonicalize != nil {
		c.Canonicalize = other.Canonicalize
	}
	if other.StrictCommonRoot != nil {
		c.StrictCommonRoot = other.StrictCommonRoot
	}
	if other.Exclude != nil {
		c.Exclude = other.Exclude
	}
	if other.Parallel != 0 {
		c.Parallel = other.Parallel
	}
	for name, value := range other.Properties {
		c.Properties[name] = value
	}
}

// PropertyName returns the configured property name or DefaultProperty
func (c *Config) PropertyName() string {
	if c.Property == "" {
		return DefaultProperty
	}
	return c.Property
}

// IsQuiet reports whether resolution logging is switched off
func (c *Config) IsQuiet() bool {
	return c.Quiet != nil && *c.Quiet
}

// IsCanonicalize reports whether base directories get their symlinks resolved
func (c *Config) IsCanonicalize() bool {
	return c.Canonicalize != nil && *c.Canonicalize
}

// IsStrictCommonRoot reports whether every base directory is checked
func (c *Config) IsStrictCommonRoot() bool {
	return c.StrictCommonRoot != nil && *c.StrictCommonRoot
}
