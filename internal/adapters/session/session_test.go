package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/config"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
	"github.com/AchilleasB/planbee/clinic-portal-service/test/mocks"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func testSession(token string, ttl time.Duration) *domain.Session {
	staff := mocks.CreateTestStaff("staff-001", domain.StaffRoleHygienist)
	return &domain.Session{
		Token:     token,
		User:      domain.AuthUser{ID: staff.ID, Email: staff.Email, Role: domain.RoleStaff, StaffID: staff.ID},
		Staff:     &staff,
		CreatedAt: testNow,
		ExpiresAt: testNow.Add(ttl),
	}
}

func TestStores_RoundTrip(t *testing.T) {
	redisClient := mocks.NewMockRedisClient()
	redisClient.Now = func() time.Time { return testNow }

	redisStore := NewRedisStore(redisClient, nil)
	redisStore.now = func() time.Time { return testNow }

	memoryStore := NewMemoryStore()
	memoryStore.now = func() time.Time { return testNow }

	stores := map[string]ports.SessionStore{
		"redis":  redisStore,
		"memory": memoryStore,
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Save(ctx, testSession("tok-1", time.Hour)); err != nil {
				t.Fatalf("save: %v", err)
			}

			got, err := store.Get(ctx, "tok-1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.User.StaffID != "staff-001" || got.Staff == nil || got.Staff.ClinicID != mocks.TestClinicID {
				t.Errorf("unexpected session %+v", got)
			}

			if _, err := store.Get(ctx, "unknown"); !errors.Is(err, domain.ErrSessionNotFound) {
				t.Errorf("expected ErrSessionNotFound, got %v", err)
			}

			if err := store.Delete(ctx, "tok-1"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := store.Get(ctx, "tok-1"); !errors.Is(err, domain.ErrSessionNotFound) {
				t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
			}
		})
	}
}

func TestRedisStore_TTLFollowsExpiry(t *testing.T) {
	client := mocks.NewMockRedisClient()
	client.Now = func() time.Time { return testNow }
	store := NewRedisStore(client, nil)
	store.now = func() time.Time { return testNow }

	if err := store.Save(context.Background(), testSession("tok-ttl", 90*time.Minute)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := client.TTL(keyPrefix + "tok-ttl"); ttl != 90*time.Minute {
		t.Errorf("expected 90m TTL, got %v", ttl)
	}

	if err := store.Save(context.Background(), testSession("tok-old", -time.Minute)); err == nil {
		t.Error("expected error saving an already expired session")
	}
	if client.HasKey(keyPrefix + "tok-old") {
		t.Error("expired session must not be written")
	}
}

func TestRedisStore_CircuitBreaker(t *testing.T) {
	client := mocks.NewMockRedisClient()
	store := NewRedisStore(client, config.NewCircuitBreaker("Redis-Session", zap.NewNop()))
	ctx := context.Background()

	// Misses are answers and must not count as failures.
	for i := 0; i < 5; i++ {
		if _, err := store.Get(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	}

	client.GetError = errors.New("connection refused")
	for i := 0; i < 3; i++ {
		if _, err := store.Get(ctx, "any"); err == nil {
			t.Fatal("expected redis error")
		}
	}

	client.GetError = nil
	if _, err := store.Get(ctx, "any"); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected open breaker, got %v", err)
	}
}

func TestMemoryStore_ExpiredSessions(t *testing.T) {
	now := testNow
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Save(ctx, testSession("short", time.Minute))
	_ = store.Save(ctx, testSession("long", time.Hour))

	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "short"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected expired session to be gone, got %v", err)
	}

	_ = store.Save(ctx, testSession("other", 3*time.Hour))
	store.mu.RLock()
	_, stillThere := store.sessions["short"]
	store.mu.RUnlock()
	if stillThere {
		t.Error("expected expired session evicted on save")
	}
	if _, err := store.Get(ctx, "long"); err != nil {
		t.Errorf("expected live session, got %v", err)
	}
}
