// Package config provides configuration loading and management for
// sitelens.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete sitelens configuration
type Config struct {
	Scan       ScanConfig          `yaml:"scan"`
	Dataset    DatasetConfig       `yaml:"dataset"`
	Attributes map[string][]string `yaml:"attributes"`
	NATS       NATSConfig          `yaml:"nats"`
}

// ScanConfig configures the chunked classification scan
type ScanConfig struct {
	// BatchSize is the maximum elements per bulk property fetch
	BatchSize int `yaml:"batch_size"`
	// SubtreeRoots designates scene subtrees known to host domain geometry
	SubtreeRoots []int64 `yaml:"subtree_roots"`
	// BatchTimeout bounds one fetch attempt (0 = none)
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	// MaxAttempts is the number of fetch attempts per batch
	MaxAttempts int `yaml:"max_attempts"`
	// PropertyFilter restricts bulk fetches to the named properties
	PropertyFilter []string `yaml:"property_filter"`
}

// DatasetConfig configures the external schedule dataset
type DatasetConfig struct {
	// Path is the schedule file location (CSV)
	Path string `yaml:"path"`
	// KeyField is the join key column (default "plot")
	KeyField string `yaml:"key_field"`
	// Columns maps canonical column names to the file's actual headers
	Columns map[string]string `yaml:"columns"`
	// WatchDebounce is the reload debounce for file watching
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// NATSConfig configures publishing to the visualization collaborator
type NATSConfig struct {
	// URL is the NATS server URL (empty = publishing disabled)
	URL string `yaml:"url"`
	// SubjectPrefix prefixes all published subjects
	SubjectPrefix string `yaml:"subject_prefix"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			BatchSize:    5000,
			MaxAttempts:  3,
			BatchTimeout: 2 * time.Minute,
		},
		Dataset: DatasetConfig{
			KeyField:      "plot",
			WatchDebounce: 500 * time.Millisecond,
		},
		NATS: NATSConfig{
			URL:           "",
			SubjectPrefix: "sitelens",
		},
	}
}

// validKeyFields are the attributes a dataset may join on.
var validKeyFields = map[string]bool{
	"plot":         true,
	"block":        true,
	"neighborhood": true,
	"villaType":    true,
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Scan.BatchSize <= 0 {
		return fmt.Errorf("scan.batch_size must be positive, got %d", c.Scan.BatchSize)
	}
	if c.Scan.MaxAttempts <= 0 {
		return fmt.Errorf("scan.max_attempts must be positive, got %d", c.Scan.MaxAttempts)
	}
	if c.Dataset.KeyField != "" && !validKeyFields[c.Dataset.KeyField] {
		return fmt.Errorf("dataset.key_field %q is not a joinable attribute", c.Dataset.KeyField)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Scan
	if other.Scan.BatchSize != 0 {
		c.Scan.BatchSize = other.Scan.BatchSize
	}
	if len(other.Scan.SubtreeRoots) > 0 {
		c.Scan.SubtreeRoots = other.Scan.SubtreeRoots
	}
	if other.Scan.BatchTimeout != 0 {
		c.Scan.BatchTimeout = other.Scan.BatchTimeout
	}
	if other.Scan.MaxAttempts != 0 {
		c.Scan.MaxAttempts = other.Scan.MaxAttempts
	}
	if len(other.Scan.PropertyFilter) > 0 {
		c.Scan.PropertyFilter = other.Scan.PropertyFilter
	}

	// Dataset
	if other.Dataset.Path != "" {
		c.Dataset.Path = other.Dataset.Path
	}
	if other.Dataset.KeyField != "" {
		c.Dataset.KeyField = other.Dataset.KeyField
	}
	if len(other.Dataset.Columns) > 0 {
		c.Dataset.Columns = other.Dataset.Columns
	}
	if other.Dataset.WatchDebounce != 0 {
		c.Dataset.WatchDebounce = other.Dataset.WatchDebounce
	}

	// Attributes
	if len(other.Attributes) > 0 {
		if c.Attributes == nil {
			c.Attributes = make(map[string][]string, len(other.Attributes))
		}
		for attr, candidates := range other.Attributes {
			c.Attributes[attr] = candidates
		}
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SubjectPrefix != "" {
		c.NATS.SubjectPrefix = other.NATS.SubjectPrefix
	}
}
