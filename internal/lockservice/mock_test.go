// internal/lockservice/mock_test.go
package lockservice

import (
	"context"
	"time"

	"github.com/avivl/seat-quest/internal/observability"
	"github.com/avivl/seat-quest/internal/store"
)

const testStoreName = "mock"

// MockConfig implements store.StoreConfig
type MockConfig struct {
	LockTTL       time.Duration
	SweepInterval time.Duration
}

// Validate validates the configuration
func (c *MockConfig) Validate() error {
	return nil
}

// GetLockTTL returns the lock TTL
func (c *MockConfig) GetLockTTL() time.Duration {
	return c.LockTTL
}

// GetSweepInterval returns the sweep interval
func (c *MockConfig) GetSweepInterval() time.Duration {
	return c.SweepInterval
}

// newStore creates a new mock seat lock store from the provided configuration.
func newStore(ctx context.Context, options Config, logger *observability.SLogger) (store.SeatLockStore, error) {
	cfg, ok := options.(*MockConfig)
	if !ok && options != nil {
		return nil, &store.InvalidConfigurationError{Store: testStoreName, Config: options}
	}

	return NewMock(ctx, cfg)
}

type Mock struct {
	cfg *MockConfig
}

// NewMock creates a new Mock client.
func NewMock(_ context.Context, cfg *MockConfig) (*Mock, error) {
	return &Mock{cfg: cfg}, nil
}

// TryLock attempts to lock a set of seats
func (m *Mock) TryLock(_ context.Context, showID int64, seatIDs []int64, ownerID string, ttl time.Duration) bool {
	panic("implement me")
}

// Unlock releases a set of seat locks
func (m *Mock) Unlock(_ context.Context, showID int64, seatIDs []int64, ownerID string) bool {
	panic("implement me")
}

// Confirm books a set of locked seats
func (m *Mock) Confirm(_ context.Context, showID int64, seatIDs []int64, ownerID string) bool {
	panic("implement me")
}

// AvailableSeats reports the free subset of the requested seats
func (m *Mock) AvailableSeats(_ context.Context, showID int64, seatIDs []int64) map[int64]struct{} {
	panic("implement me")
}

// LockedSeats reports the seats with a live lock
func (m *Mock) LockedSeats(_ context.Context, showID int64) map[int64]struct{} {
	panic("implement me")
}

// GetLockInfo returns the live lock on a seat
func (m *Mock) GetLockInfo(_ context.Context, showID, seatID int64) *store.SeatLock {
	panic("implement me")
}

// Close closes the Mock store
func (m *Mock) Close() {}

// GetConfig returns the current store configuration
func (m *Mock) GetConfig() store.StoreConfig {
	return m.cfg
}
