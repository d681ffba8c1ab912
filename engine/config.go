package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/rewind/buffer"
	"github.com/tailored-agentic-units/rewind/export"
	"github.com/tailored-agentic-units/rewind/session"
)

const (
	defaultMailboxSize = 256
	defaultObserver    = "slog"
)

// Config holds initialization parameters for an engine and the subsystems it
// owns. Each section is handed to that subsystem's constructor.
type Config struct {
	Buffer      buffer.Config  `json:"buffer" yaml:"buffer"`
	Session     session.Config `json:"session" yaml:"session"`
	Export      export.Config  `json:"export" yaml:"export"`
	MailboxSize int            `json:"mailbox_size,omitempty" yaml:"mailbox_size,omitempty"`
	Observer    string         `json:"observer,omitempty" yaml:"observer,omitempty"`
}

// DefaultConfig returns a Config with defaults for every subsystem.
func DefaultConfig() Config {
	return Config{
		Buffer:      buffer.DefaultConfig(),
		Session:     session.DefaultConfig(),
		Export:      export.DefaultConfig(),
		MailboxSize: defaultMailboxSize,
		Observer:    defaultObserver,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	c.Buffer.Merge(&source.Buffer)
	c.Session.Merge(&source.Session)
	c.Export.Merge(&source.Export)

	if source.MailboxSize > 0 {
		c.MailboxSize = source.MailboxSize
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a config file, merges it over DefaultConfig and returns the
// result. Files ending in .yaml or .yml are parsed as YAML, anything else as
// JSON.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
