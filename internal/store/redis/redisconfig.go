// internal/store/redis/redisconfig.go

package redis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/avivl/seat-quest/internal/store"
)

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	store.BaseStoreConfig `yaml:",inline" mapstructure:",squash"`

	Host      string `yaml:"host" mapstructure:"host"`
	Port      int    `yaml:"port" mapstructure:"port"`
	Password  string `yaml:"password" mapstructure:"password"`
	DB        int    `yaml:"db" mapstructure:"db"`
	KeyPrefix string `yaml:"keyPrefix" mapstructure:"keyPrefix"`
}

// NewRedisConfig creates a new Redis configuration with default values
func NewRedisConfig() *RedisConfig {
	return &RedisConfig{
		BaseStoreConfig: store.BaseStoreConfig{
			LockTTL:       store.DefaultLockTTL,
			SweepInterval: store.DefaultSweepInterval,
		},
		Host:      "localhost",
		Port:      6379,
		Password:  "",
		DB:        0,
		KeyPrefix: "seatquest",
	}
}

// Validate ensures the Redis configuration is valid
func (c *RedisConfig) Validate() error {
	var errs []string

	if c.Host == "" {
		errs = append(errs, "host is required")
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	if c.LockTTL < 0 {
		errs = append(errs, "lock TTL cannot be negative")
	}

	if c.DB < 0 {
		errs = append(errs, "DB number must be non-negative")
	}

	if c.KeyPrefix == "" {
		errs = append(errs, "key prefix is required")
	}

	if len(errs) > 0 {
		return errors.New("store validation failed: " + strings.Join(errs, "; "))
	}

	return nil
}

// String returns a string representation of the Redis configuration
func (c *RedisConfig) String() string {
	return fmt.Sprintf(
		"RedisConfig{Host: %s, Port: %d, DB: %d, LockTTL: %s, KeyPrefix: %s}",
		c.Host,
		c.Port,
		c.DB,
		c.LockTTL,
		c.KeyPrefix,
	)
}
