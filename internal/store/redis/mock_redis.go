// internal/store/redis/mock_redis.go
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// MockRedisClient is a mock for the redisClient interface
type MockRedisClient struct {
	mock.Mock
}

// Eval mocks the Eval method
func (m *MockRedisClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	callArgs := m.Called(ctx, script, keys, args)
	return callArgs.Get(0).(*redis.Cmd)
}

// EvalSha mocks the EvalSha method
func (m *MockRedisClient) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	callArgs := m.Called(ctx, sha1, keys, args)
	return callArgs.Get(0).(*redis.Cmd)
}

// EvalRO mocks the EvalRO method
func (m *MockRedisClient) EvalRO(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	callArgs := m.Called(ctx, script, keys, args)
	return callArgs.Get(0).(*redis.Cmd)
}

// EvalShaRO mocks the EvalShaRO method
func (m *MockRedisClient) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	callArgs := m.Called(ctx, sha1, keys, args)
	return callArgs.Get(0).(*redis.Cmd)
}

// ScriptExists mocks the ScriptExists method
func (m *MockRedisClient) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	callArgs := m.Called(ctx, hashes)
	return callArgs.Get(0).(*redis.BoolSliceCmd)
}

// ScriptLoad mocks the ScriptLoad method
func (m *MockRedisClient) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	callArgs := m.Called(ctx, script)
	return callArgs.Get(0).(*redis.StringCmd)
}

// Get mocks the Get method
func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	callArgs := m.Called(ctx, key)
	return callArgs.Get(0).(*redis.StringCmd)
}

// PTTL mocks the PTTL method
func (m *MockRedisClient) PTTL(ctx context.Context, key string) *redis.DurationCmd {
	callArgs := m.Called(ctx, key)
	return callArgs.Get(0).(*redis.DurationCmd)
}

// SIsMember mocks the SIsMember method
func (m *MockRedisClient) SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd {
	callArgs := m.Called(ctx, key, member)
	return callArgs.Get(0).(*redis.BoolCmd)
}

// Ping mocks the Ping method
func (m *MockRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	callArgs := m.Called(ctx)
	return callArgs.Get(0).(*redis.StatusCmd)
}

// Close mocks the Close method
func (m *MockRedisClient) Close() error {
	callArgs := m.Called()
	return callArgs.Error(0)
}
