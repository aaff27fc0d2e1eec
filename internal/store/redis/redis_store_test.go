// internal/store/redis/redis_store_test.go
package redis

import (
	"context"
	"testing"
	"time"

	"github.com/avivl/seat-quest/internal/observability"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newTestStore builds a Store around a mock client, skipping New so no
// Ping round trip is needed.
func newTestStore(t *testing.T) (*Store, *MockRedisClient) {
	t.Helper()

	logger, _, err := observability.NewTestLogger()
	require.NoError(t, err)

	client := new(MockRedisClient)
	cfg := NewRedisConfig()
	return &Store{
		client:    client,
		ttl:       cfg.GetLockTTL(),
		l:         logger,
		keyPrefix: cfg.KeyPrefix,
		config:    cfg,
	}, client
}

// expectScript answers the EvalSha call that redis.Script.Run issues
// when the script is already cached server side.
func expectScript(client *MockRedisClient, result interface{}) {
	cmd := redis.NewCmdResult(result, nil)
	client.On("EvalSha", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(cmd)
}

func TestKeyConstruction(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Equal(t, "seatquest:booked:42", s.bookedKey(42))
	assert.Equal(t, "seatquest:locked:42", s.lockedSetKey(42))
	assert.Equal(t, "seatquest:lock:42:", s.lockKeyPrefix(42))
	assert.Equal(t, "seatquest:lock:42:7", s.lockKey(42, 7))
}

func TestParseLockValue(t *testing.T) {
	owner, acquiredAt, err := parseLockValue("client-1|1700000000000")
	require.NoError(t, err)
	assert.Equal(t, "client-1", owner)
	assert.Equal(t, time.UnixMilli(1700000000000), acquiredAt)

	_, _, err = parseLockValue("no-separator")
	assert.Error(t, err)

	_, _, err = parseLockValue("client-1|not-a-number")
	assert.Error(t, err)
}

func TestTryLock(t *testing.T) {
	t.Run("granted", func(t *testing.T) {
		s, client := newTestStore(t)
		expectScript(client, int64(1))

		ok := s.TryLock(context.Background(), 1, []int64{1, 2, 3}, "client-1", 30*time.Second)
		assert.True(t, ok)
		client.AssertExpectations(t)
	})

	t.Run("denied", func(t *testing.T) {
		s, client := newTestStore(t)
		expectScript(client, int64(0))

		ok := s.TryLock(context.Background(), 1, []int64{1, 2, 3}, "client-2", 30*time.Second)
		assert.False(t, ok)
	})

	t.Run("rejects duplicate seats without touching redis", func(t *testing.T) {
		s, client := newTestStore(t)

		ok := s.TryLock(context.Background(), 1, []int64{5, 5}, "client-1", 30*time.Second)
		assert.False(t, ok)
		client.AssertNotCalled(t, "EvalSha", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects empty seat list", func(t *testing.T) {
		s, _ := newTestStore(t)

		ok := s.TryLock(context.Background(), 1, nil, "client-1", 30*time.Second)
		assert.False(t, ok)
	})
}

func TestUnlock(t *testing.T) {
	t.Run("all released", func(t *testing.T) {
		s, client := newTestStore(t)
		expectScript(client, int64(1))

		assert.True(t, s.Unlock(context.Background(), 1, []int64{1, 2}, "client-1"))
	})

	t.Run("partial ownership", func(t *testing.T) {
		s, client := newTestStore(t)
		expectScript(client, int64(0))

		assert.False(t, s.Unlock(context.Background(), 1, []int64{1, 2}, "client-2"))
	})
}

func TestConfirm(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		s, client := newTestStore(t)
		expectScript(client, int64(1))

		assert.True(t, s.Confirm(context.Background(), 1, []int64{1, 2}, "client-1"))
	})

	t.Run("rejected when a lock is missing", func(t *testing.T) {
		s, client := newTestStore(t)
		expectScript(client, int64(0))

		assert.False(t, s.Confirm(context.Background(), 1, []int64{1, 2}, "client-1"))
	})
}

func TestAvailableSeats(t *testing.T) {
	s, client := newTestStore(t)
	expectScript(client, []interface{}{"1", "4"})

	available := s.AvailableSeats(context.Background(), 1, []int64{1, 2, 3, 4})
	assert.Equal(t, map[int64]struct{}{1: {}, 4: {}}, available)
}

func TestAvailableSeatsEmptyQuery(t *testing.T) {
	s, client := newTestStore(t)

	available := s.AvailableSeats(context.Background(), 1, nil)
	assert.Empty(t, available)
	client.AssertNotCalled(t, "EvalSha", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLockedSeats(t *testing.T) {
	s, client := newTestStore(t)
	expectScript(client, []interface{}{"2", "3"})

	locked := s.LockedSeats(context.Background(), 1)
	assert.Equal(t, map[int64]struct{}{2: {}, 3: {}}, locked)
}

func TestGetLockInfo(t *testing.T) {
	t.Run("live lock", func(t *testing.T) {
		s, client := newTestStore(t)
		client.On("Get", mock.Anything, "seatquest:lock:1:7").
			Return(redis.NewStringResult("client-1|1700000000000", nil))
		client.On("PTTL", mock.Anything, "seatquest:lock:1:7").
			Return(redis.NewDurationResult(25*time.Second, nil))

		info := s.GetLockInfo(context.Background(), 1, 7)
		require.NotNil(t, info)
		assert.Equal(t, "client-1", info.OwnerID)
		assert.Equal(t, time.UnixMilli(1700000000000), info.AcquiredAt)
		assert.WithinDuration(t, time.Now().Add(25*time.Second), info.ExpiresAt, time.Second)
	})

	t.Run("no lock", func(t *testing.T) {
		s, client := newTestStore(t)
		client.On("Get", mock.Anything, "seatquest:lock:1:7").
			Return(redis.NewStringResult("", redis.Nil))

		assert.Nil(t, s.GetLockInfo(context.Background(), 1, 7))
	})

	t.Run("malformed value", func(t *testing.T) {
		s, client := newTestStore(t)
		client.On("Get", mock.Anything, "seatquest:lock:1:7").
			Return(redis.NewStringResult("garbage", nil))

		assert.Nil(t, s.GetLockInfo(context.Background(), 1, 7))
	})
}

func TestClose(t *testing.T) {
	s, client := newTestStore(t)
	client.On("Close").Return(nil)

	s.Close()
	client.AssertExpectations(t)
}

func TestRedisConfigValidate(t *testing.T) {
	cfg := NewRedisConfig()
	assert.NoError(t, cfg.Validate())

	bad := NewRedisConfig()
	bad.Host = ""
	assert.Error(t, bad.Validate())

	bad = NewRedisConfig()
	bad.Port = 0
	assert.Error(t, bad.Validate())
}

func TestNewRequiresConfig(t *testing.T) {
	logger, _, err := observability.NewTestLogger()
	require.NoError(t, err)

	_, err = New(context.Background(), nil, logger)
	assert.ErrorIs(t, err, ErrConfigOptionMissing)
}
