package memory

import (
	"errors"

	"github.com/avivl/seat-quest/internal/store"
)

// Config holds the in-memory store configuration. The in-memory backend
// needs no connection settings, only the lock TTL and sweep cadence.
type Config struct {
	store.BaseStoreConfig `yaml:",inline" mapstructure:",squash"`
}

// NewConfig creates a new in-memory store configuration with default values
func NewConfig() *Config {
	return &Config{
		BaseStoreConfig: store.BaseStoreConfig{
			LockTTL:       store.DefaultLockTTL,
			SweepInterval: store.DefaultSweepInterval,
		},
	}
}

// Validate ensures the configuration is usable
func (c *Config) Validate() error {
	if c.LockTTL < 0 {
		return errors.New("lock TTL cannot be negative")
	}
	if c.SweepInterval < 0 {
		return errors.New("sweep interval cannot be negative")
	}
	return nil
}
