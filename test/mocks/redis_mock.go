package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockRedisClient provides the Set/Get/Del/Ping subset of *redis.Client the
// session store and health checks use. Keys expire against Now, which tests
// may replace.
type MockRedisClient struct {
	mu   sync.RWMutex
	data map[string]mockRedisValue

	Now func() time.Time

	SetError  error
	GetError  error
	DelError  error
	PingError error
}

type mockRedisValue struct {
	value     string
	expiresAt time.Time
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		data: make(map[string]mockRedisValue),
		Now:  time.Now,
	}
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewStatusCmd(ctx)
	if m.SetError != nil {
		cmd.SetErr(m.SetError)
		return cmd
	}

	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = m.Now().Add(expiration)
	}
	m.data[key] = mockRedisValue{value: value.(string), expiresAt: expiresAt}

	cmd.SetVal("OK")
	return cmd
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cmd := redis.NewStringCmd(ctx)
	if m.GetError != nil {
		cmd.SetErr(m.GetError)
		return cmd
	}

	val, ok := m.data[key]
	if !ok || m.expired(val) {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val.value)
	return cmd
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewIntCmd(ctx)
	if m.DelError != nil {
		cmd.SetErr(m.DelError)
		return cmd
	}

	var deleted int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			deleted++
		}
	}
	cmd.SetVal(deleted)
	return cmd
}

func (m *MockRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if m.PingError != nil {
		cmd.SetErr(m.PingError)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

// HasKey reports whether key is present and unexpired.
func (m *MockRedisClient) HasKey(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	return ok && !m.expired(val)
}

// TTL returns the remaining lifetime of key, or 0 if it has none.
func (m *MockRedisClient) TTL(key string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	if !ok || val.expiresAt.IsZero() {
		return 0
	}
	return val.expiresAt.Sub(m.Now())
}

func (m *MockRedisClient) expired(val mockRedisValue) bool {
	return !val.expiresAt.IsZero() && !m.Now().Before(val.expiresAt)
}
