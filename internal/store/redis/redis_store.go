// internal/store/redis/redis_store.go
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avivl/seat-quest/internal/lockservice"
	"github.com/avivl/seat-quest/internal/observability"
	"github.com/avivl/seat-quest/internal/store"
	"github.com/redis/go-redis/v9"
)

// Error definitions
var (
	ErrConfigOptionMissing = errors.New("Redis requires a config option")
)

// StoreName is the registered name of the Redis store
const StoreName = "redis"

// redisClient defines the interface for Redis operations
// This allows for easier mocking in tests
type redisClient interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Factory function for creating Redis clients
// Can be replaced during tests for mocking
var newRedisClientFn = func(addr string, password string, db int) redisClient {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Register the Redis store with the lockservice package
func init() {
	lockservice.Register(StoreName, newStore)
}

// newStore creates a new Redis store instance from configuration
func newStore(ctx context.Context, options lockservice.Config, logger *observability.SLogger) (store.SeatLockStore, error) {
	cfg, ok := options.(*RedisConfig)
	if !ok && options != nil {
		return nil, &store.InvalidConfigurationError{Store: StoreName, Config: options}
	}
	return New(ctx, cfg, logger)
}

// Seat lock state in Redis:
//
//	{prefix}:lock:{show}:{seat}  string "owner|acquiredMillis", PX = lock TTL
//	{prefix}:locked:{show}       set of seat ids with a lock key (may lag expiry)
//	{prefix}:booked:{show}       set of permanently booked seat ids, no TTL
//
// Redis runs each script single-threaded, which makes a script the
// per-show critical section the multi-seat operations need: every
// check-then-apply below is one script.
var tryLockScript = redis.NewScript(`
    -- KEYS[1] = booked set, KEYS[2] = locked set, KEYS[3..] = seat lock keys
    -- ARGV[1] = owner, ARGV[2] = ttl millis, ARGV[3] = now millis, ARGV[4..] = seat ids

    for i = 4, #ARGV do
        if redis.call("SISMEMBER", KEYS[1], ARGV[i]) == 1 then
            return 0
        end
        local v = redis.call("GET", KEYS[i - 1])
        if v and string.match(v, "([^|]*)") ~= ARGV[1] then
            return 0
        end
    end

    if tonumber(ARGV[2]) <= 0 then
        return 1
    end

    for i = 4, #ARGV do
        redis.call("SET", KEYS[i - 1], ARGV[1] .. "|" .. ARGV[3], "PX", ARGV[2])
        redis.call("SADD", KEYS[2], ARGV[i])
    end

    return 1
`)

var unlockScript = redis.NewScript(`
    -- KEYS[1] = locked set, KEYS[2..] = seat lock keys
    -- ARGV[1] = owner, ARGV[2..] = seat ids

    local all = 1
    for i = 2, #ARGV do
        local v = redis.call("GET", KEYS[i])
        if v and string.match(v, "([^|]*)") == ARGV[1] then
            redis.call("DEL", KEYS[i])
            redis.call("SREM", KEYS[1], ARGV[i])
        else
            all = 0
        end
    end
    return all
`)

var confirmScript = redis.NewScript(`
    -- KEYS[1] = booked set, KEYS[2] = locked set, KEYS[3..] = seat lock keys
    -- ARGV[1] = owner, ARGV[2..] = seat ids

    for i = 2, #ARGV do
        local v = redis.call("GET", KEYS[i + 1])
        if (not v) or string.match(v, "([^|]*)") ~= ARGV[1] then
            return 0
        end
    end

    for i = 2, #ARGV do
        redis.call("SADD", KEYS[1], ARGV[i])
        redis.call("DEL", KEYS[i + 1])
        redis.call("SREM", KEYS[2], ARGV[i])
    end
    return 1
`)

var availableSeatsScript = redis.NewScript(`
    -- KEYS[1] = booked set, KEYS[2..] = seat lock keys
    -- ARGV[1..] = seat ids

    local free = {}
    for i = 1, #ARGV do
        if redis.call("SISMEMBER", KEYS[1], ARGV[i]) == 0 and redis.call("EXISTS", KEYS[i + 1]) == 0 then
            table.insert(free, ARGV[i])
        end
    end
    return free
`)

// lockedSeatsScript walks the per-show locked set and drops entries whose
// lock key has already expired, returning only the live ones.
var lockedSeatsScript = redis.NewScript(`
    -- KEYS[1] = locked set
    -- ARGV[1] = seat lock key prefix

    local cursor = "0"
    local valid = {}
    local expired = {}

    repeat
        local result = redis.call("SSCAN", KEYS[1], cursor, "COUNT", 100)
        cursor = result[1]
        for _, seat in ipairs(result[2]) do
            if redis.call("EXISTS", ARGV[1] .. seat) == 1 then
                table.insert(valid, seat)
            else
                table.insert(expired, seat)
            end
        end
    until cursor == "0"

    if #expired > 0 then
        redis.call("SREM", KEYS[1], unpack(expired))
    end
    return valid
`)

// Store implements store.SeatLockStore backed by Redis
type Store struct {
	client    redisClient
	ttl       time.Duration
	l         *observability.SLogger
	keyPrefix string
	config    *RedisConfig
}

// GetConfig returns the current store configuration
func (s *Store) GetConfig() store.StoreConfig {
	return s.config
}

// New creates a new Redis store with the provided configuration
func New(ctx context.Context, config *RedisConfig, logger *observability.SLogger) (*Store, error) {
	if config == nil {
		return nil, ErrConfigOptionMissing
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	client := newRedisClientFn(addr, config.Password, config.DB)

	// Test connection
	if _, err := client.Ping(ctx).Result(); err != nil {
		logger.Errorf("Error connecting to Redis: %v", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{
		client:    client,
		ttl:       config.GetLockTTL(),
		l:         logger,
		keyPrefix: config.KeyPrefix,
		config:    config,
	}, nil
}

func (s *Store) bookedKey(showID int64) string {
	return fmt.Sprintf("%s:booked:%d", s.keyPrefix, showID)
}

func (s *Store) lockedSetKey(showID int64) string {
	return fmt.Sprintf("%s:locked:%d", s.keyPrefix, showID)
}

func (s *Store) lockKeyPrefix(showID int64) string {
	return fmt.Sprintf("%s:lock:%d:", s.keyPrefix, showID)
}

func (s *Store) lockKey(showID, seatID int64) string {
	return s.lockKeyPrefix(showID) + strconv.FormatInt(seatID, 10)
}

func (s *Store) TryLock(ctx context.Context, showID int64, seatIDs []int64, ownerID string, ttl time.Duration) bool {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		s.l.Debugf("rejecting lock request for show %d: %v", showID, err)
		return false
	}
	if ttl < 0 {
		ttl = s.ttl
	}

	keys := make([]string, 0, len(seatIDs)+2)
	keys = append(keys, s.bookedKey(showID), s.lockedSetKey(showID))
	args := make([]interface{}, 0, len(seatIDs)+3)
	args = append(args, ownerID, ttl.Milliseconds(), time.Now().UnixMilli())
	for _, seatID := range seatIDs {
		keys = append(keys, s.lockKey(showID, seatID))
		args = append(args, seatID)
	}

	granted, err := tryLockScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		s.l.Errorf("Error acquiring seat locks: %v", err)
		return false
	}
	return granted == 1
}

func (s *Store) Unlock(ctx context.Context, showID int64, seatIDs []int64, ownerID string) bool {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		s.l.Debugf("rejecting unlock request for show %d: %v", showID, err)
		return false
	}

	keys := make([]string, 0, len(seatIDs)+1)
	keys = append(keys, s.lockedSetKey(showID))
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, ownerID)
	for _, seatID := range seatIDs {
		keys = append(keys, s.lockKey(showID, seatID))
		args = append(args, seatID)
	}

	all, err := unlockScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		s.l.Errorf("Error releasing seat locks: %v", err)
		return false
	}
	return all == 1
}

func (s *Store) Confirm(ctx context.Context, showID int64, seatIDs []int64, ownerID string) bool {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		s.l.Debugf("rejecting confirm request for show %d: %v", showID, err)
		return false
	}

	keys := make([]string, 0, len(seatIDs)+2)
	keys = append(keys, s.bookedKey(showID), s.lockedSetKey(showID))
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, ownerID)
	for _, seatID := range seatIDs {
		keys = append(keys, s.lockKey(showID, seatID))
		args = append(args, seatID)
	}

	confirmed, err := confirmScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		s.l.Errorf("Error confirming seat booking: %v", err)
		return false
	}
	return confirmed == 1
}

func (s *Store) AvailableSeats(ctx context.Context, showID int64, seatIDs []int64) map[int64]struct{} {
	available := make(map[int64]struct{}, len(seatIDs))
	if len(seatIDs) == 0 {
		return available
	}

	keys := make([]string, 0, len(seatIDs)+1)
	keys = append(keys, s.bookedKey(showID))
	args := make([]interface{}, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		keys = append(keys, s.lockKey(showID, seatID))
		args = append(args, seatID)
	}

	free, err := availableSeatsScript.Run(ctx, s.client, keys, args...).Int64Slice()
	if err != nil {
		s.l.Errorf("Error reading available seats: %v", err)
		return available
	}
	for _, seatID := range free {
		available[seatID] = struct{}{}
	}
	return available
}

func (s *Store) LockedSeats(ctx context.Context, showID int64) map[int64]struct{} {
	locked := make(map[int64]struct{})

	valid, err := lockedSeatsScript.Run(ctx, s.client,
		[]string{s.lockedSetKey(showID)}, s.lockKeyPrefix(showID)).Int64Slice()
	if err != nil {
		s.l.Errorf("Error reading locked seats: %v", err)
		return locked
	}
	for _, seatID := range valid {
		locked[seatID] = struct{}{}
	}
	return locked
}

func (s *Store) GetLockInfo(ctx context.Context, showID, seatID int64) *store.SeatLock {
	key := s.lockKey(showID, seatID)

	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.l.Errorf("Error reading seat lock: %v", err)
		}
		return nil
	}

	ownerID, acquiredAt, err := parseLockValue(value)
	if err != nil {
		s.l.Errorf("Malformed seat lock value for %s: %v", key, err)
		return nil
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		return nil
	}

	return &store.SeatLock{
		OwnerID:    ownerID,
		AcquiredAt: acquiredAt,
		ExpiresAt:  time.Now().Add(ttl),
	}
}

// parseLockValue splits the "owner|acquiredMillis" lock value.
func parseLockValue(value string) (string, time.Time, error) {
	parts := strings.SplitN(value, "|", 2)
	if len(parts) != 2 {
		return "", time.Time{}, fmt.Errorf("expected owner|acquiredMillis, got %q", value)
	}
	millis, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", time.Time{}, err
	}
	return parts[0], time.UnixMilli(millis), nil
}

// Close closes the Redis client connection
func (s *Store) Close() {
	if err := s.client.Close(); err != nil {
		s.l.Errorf("Error closing Redis connection: %v", err)
	}
}
