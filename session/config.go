package session

// DefaultMaxBreadcrumbs is the breadcrumb cap used when none is configured.
const DefaultMaxBreadcrumbs = 100

// Config holds session initialization parameters.
type Config struct {
	MaxBreadcrumbs int `json:"max_breadcrumbs,omitempty" yaml:"max_breadcrumbs,omitempty"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{MaxBreadcrumbs: DefaultMaxBreadcrumbs}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.MaxBreadcrumbs > 0 {
		c.MaxBreadcrumbs = source.MaxBreadcrumbs
	}
}

// New creates a Session from configuration. Currently returns an in-memory session.
func New(cfg *Config) (Session, error) {
	return NewMemorySession(cfg.MaxBreadcrumbs), nil
}
