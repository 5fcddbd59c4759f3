package poll

import (
	"time"

	"tubenotify/pkg/config"
)

// Config controls the polling loop cadence and page size.
type Config struct {
	// Interval between the end of one cycle and the start of the next.
	Interval time.Duration
	// PageSize is how many channels are loaded and polled per database page.
	PageSize int
	// ErrorBackoff replaces Interval after a failed cycle.
	ErrorBackoff time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     300 * time.Second,
		PageSize:     10,
		ErrorBackoff: 5 * time.Second,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back to
// defaults.
func ConfigFromEnv() Config {
	def := DefaultConfig()
	return Config{
		Interval:     config.GetEnvDuration("POLL_INTERVAL", def.Interval),
		PageSize:     config.GetEnvInt("POLL_PAGE_SIZE", def.PageSize),
		ErrorBackoff: config.GetEnvDuration("POLL_ERROR_BACKOFF", def.ErrorBackoff),
	}
}
