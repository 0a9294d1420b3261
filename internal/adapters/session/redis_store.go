package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

const keyPrefix = "session:"

// RedisClient is the subset of *redis.Client the store needs.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps sessions as JSON documents that Redis expires on its own.
type RedisStore struct {
	client RedisClient
	cb     *gobreaker.CircuitBreaker
	now    func() time.Time
}

var _ ports.SessionStore = (*RedisStore)(nil)

func NewRedisStore(client RedisClient, cb *gobreaker.CircuitBreaker) *RedisStore {
	return &RedisStore{client: client, cb: cb, now: time.Now}
}

func (s *RedisStore) Save(ctx context.Context, session *domain.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.execute(func() error {
		return s.client.Set(ctx, keyPrefix+session.Token, string(data), ttl).Err()
	})
}

func (s *RedisStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	var data string
	err := s.execute(func() error {
		v, err := s.client.Get(ctx, keyPrefix+token).Result()
		if errors.Is(err, redis.Nil) {
			// A miss is an answer, not a failure of Redis.
			return nil
		}
		data = v
		return err
	})
	if err != nil {
		return nil, err
	}
	if data == "" {
		return nil, domain.ErrSessionNotFound
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.execute(func() error {
		return s.client.Del(ctx, keyPrefix+token).Err()
	})
}

func (s *RedisStore) execute(fn func() error) error {
	if s.cb == nil {
		return fn()
	}
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}
