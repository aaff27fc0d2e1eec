package scylladb

import (
	"fmt"
	"strings"

	"github.com/avivl/seat-quest/internal/store"
)

// ScyllaDBConfig holds the settings for the ScyllaDB seat-lock store.
type ScyllaDBConfig struct {
	store.BaseStoreConfig `yaml:",inline" mapstructure:",squash"`
	Host                  string   `yaml:"host" mapstructure:"host"`
	Port                  int32    `yaml:"port" mapstructure:"port"`
	Keyspace              string   `yaml:"keyspace" mapstructure:"keyspace"`
	Table                 string   `yaml:"table" mapstructure:"table"`
	Consistency           string   `yaml:"consistency" mapstructure:"consistency"`
	Endpoints             []string `yaml:"endpoints" mapstructure:"endpoints"`
}

// NewScyllaDBConfig returns a config populated with local development defaults.
func NewScyllaDBConfig() *ScyllaDBConfig {
	return &ScyllaDBConfig{
		BaseStoreConfig: store.BaseStoreConfig{
			LockTTL:       store.DefaultLockTTL,
			SweepInterval: store.DefaultSweepInterval,
		},
		Host:        "localhost",
		Port:        9042,
		Keyspace:    "seatquest",
		Table:       "seat_locks",
		Consistency: "CONSISTENCY_QUORUM",
		Endpoints:   []string{"localhost:9042"},
	}
}

// Validate checks the configuration values.
func (c *ScyllaDBConfig) Validate() error {
	var errs []string
	if c.Host == "" {
		errs = append(errs, "host is required")
	}
	if c.Port <= 0 {
		errs = append(errs, "port must be positive")
	}
	if c.Keyspace == "" {
		errs = append(errs, "keyspace is required")
	}
	if c.Table == "" {
		errs = append(errs, "table is required")
	}
	if c.LockTTL < 0 {
		errs = append(errs, "lock_ttl cannot be negative")
	}
	if c.SweepInterval < 0 {
		errs = append(errs, "sweep_interval cannot be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid ScyllaDB configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *ScyllaDBConfig) String() string {
	return fmt.Sprintf("ScyllaDBConfig{Host: %s, Port: %d, Keyspace: %s, Table: %s, Consistency: %s}",
		c.Host, c.Port, c.Keyspace, c.Table, c.Consistency)
}
