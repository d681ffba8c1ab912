package buffer

import "time"

const defaultMaxAgeMs = 60_000

// Config holds retention buffer parameters.
type Config struct {
	MaxAgeMs int64 `json:"max_age_ms,omitempty" yaml:"max_age_ms,omitempty"` // Retention window in milliseconds.
}

// DefaultConfig returns the default buffer configuration (one minute window).
func DefaultConfig() Config {
	return Config{MaxAgeMs: defaultMaxAgeMs}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.MaxAgeMs > 0 {
		c.MaxAgeMs = source.MaxAgeMs
	}
}

// MaxAge returns the retention window as a Duration.
func (c Config) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeMs) * time.Millisecond
}
