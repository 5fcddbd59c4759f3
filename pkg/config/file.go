package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BucketConfig declares one named token bucket.
type BucketConfig struct {
	Name     string  `yaml:"name"`
	Rate     float64 `yaml:"rate"`
	Capacity int64   `yaml:"capacity"`
}

// FileConfig is the optional YAML configuration file. Everything in it has a
// default, so the bot runs without one.
type FileConfig struct {
	// Buckets lists the token buckets to register at startup.
	Buckets []BucketConfig `yaml:"buckets"`
	// AdminChatIDs receive startup, shutdown and digest notifications.
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
}

// DefaultFileConfig returns the built-in bucket table: one request per second
// against YouTube, thirty messages per second against Telegram.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Buckets: []BucketConfig{
			{Name: "YouTube", Rate: 1, Capacity: 1},
			{Name: "Telegram", Rate: 30, Capacity: 30},
		},
	}
}

// LoadFile reads and validates the YAML configuration at path. An empty path
// returns the defaults.
func LoadFile(path string) (*FileConfig, error) {
	cfg := DefaultFileConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var loaded FileConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if len(loaded.Buckets) > 0 {
		cfg.Buckets = loaded.Buckets
	}
	cfg.AdminChatIDs = loaded.AdminChatIDs

	for _, b := range cfg.Buckets {
		if b.Name == "" {
			return nil, fmt.Errorf("bucket with empty name in %s", path)
		}
		if b.Rate <= 0 {
			return nil, fmt.Errorf("bucket %q: rate must be positive, got %v", b.Name, b.Rate)
		}
		if b.Capacity <= 0 {
			return nil, fmt.Errorf("bucket %q: capacity must be positive, got %d", b.Name, b.Capacity)
		}
	}
	return cfg, nil
}
