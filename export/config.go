package export

import (
	"fmt"
	"runtime"

	"github.com/klauspost/compress/flate"
)

// Version is reported in the default user agent.
const Version = "0.1.0"

// Config holds export pipeline parameters.
type Config struct {
	// CompressionLevel is the Deflate level, 1 (fastest) through 9 (best).
	// Zero selects the default level.
	CompressionLevel int    `json:"compression_level,omitempty" yaml:"compression_level,omitempty"`
	UserAgent        string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	URL              string `json:"url,omitempty" yaml:"url,omitempty"`
}

// DefaultConfig returns the default export configuration.
func DefaultConfig() Config {
	return Config{
		UserAgent: DefaultUserAgent(),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.CompressionLevel != 0 {
		c.CompressionLevel = source.CompressionLevel
	}
	if source.UserAgent != "" {
		c.UserAgent = source.UserAgent
	}
	if source.URL != "" {
		c.URL = source.URL
	}
}

// Environment returns the environment descriptors recorded in metadata.
func (c Config) Environment() Environment {
	return Environment{UserAgent: c.UserAgent, URL: c.URL}
}

func (c Config) level() int {
	if c.CompressionLevel < flate.BestSpeed || c.CompressionLevel > flate.BestCompression {
		return flate.DefaultCompression
	}
	return c.CompressionLevel
}

// DefaultUserAgent describes the running process, e.g.
// "rewind/0.1.0 (linux; amd64; go1.25.7)".
func DefaultUserAgent() string {
	return fmt.Sprintf("rewind/%s (%s; %s; %s)", Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}
