package store

import "time"

type StoreConfig interface {
	// Common configuration methods
	GetLockTTL() time.Duration
	GetSweepInterval() time.Duration

	// Backend specific methods
	Validate() error
}

// DefaultLockTTL is how long a granted seat lock lives when the caller
// does not configure one. Five minutes mirrors the checkout window the
// booking flow promises buyers.
const DefaultLockTTL = 5 * time.Minute

// DefaultSweepInterval is the default period of the expired-lock sweeper.
const DefaultSweepInterval = time.Minute

type BaseStoreConfig struct {
	LockTTL       time.Duration `yaml:"lockTtl" mapstructure:"lockTtl"`
	SweepInterval time.Duration `yaml:"sweepInterval" mapstructure:"sweepInterval"`
}

// Common implementation of the interface methods
func (b *BaseStoreConfig) GetLockTTL() time.Duration {
	if b.LockTTL <= 0 {
		return DefaultLockTTL
	}
	return b.LockTTL
}

func (b *BaseStoreConfig) GetSweepInterval() time.Duration {
	if b.SweepInterval <= 0 {
		return DefaultSweepInterval
	}
	return b.SweepInterval
}
