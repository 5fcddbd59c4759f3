// Package fetcher downloads YouTube pages and extracts channel content from
// them, combining the scraper finders with rate limiting, retry and a
// circuit breaker.
package fetcher

import (
	"time"

	"tubenotify/pkg/config"
)

// Config holds the HTTP fetch settings.
type Config struct {
	// Timeout bounds one page download.
	Timeout time.Duration

	// MaxBodySize caps how many bytes of a page are read.
	MaxBodySize int64

	// BucketName is the rate limit group consulted before every request.
	BucketName string
}

// DefaultConfig returns the fetch settings used in production.
func DefaultConfig() Config {
	return Config{
		Timeout:     40 * time.Second,
		MaxBodySize: 10 * 1024 * 1024,
		BucketName:  "YouTube",
	}
}

// ConfigFromEnv reads overrides from the environment.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Timeout = config.GetEnvDuration("FETCH_TIMEOUT", cfg.Timeout)
	cfg.BucketName = config.GetEnvString("FETCH_BUCKET", cfg.BucketName)
	return cfg
}
