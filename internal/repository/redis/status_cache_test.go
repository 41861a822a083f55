package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestOnboardingStatusRepository_SetAndGet(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewOnboardingStatusRepository(client, "onboarding")

	ctx := context.Background()
	ttl := 5 * time.Minute

	if err := repo.Set(ctx, "user-1", true, ttl); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	value, found, err := repo.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !found {
		t.Fatal("expected a cache hit")
	}
	if !value {
		t.Fatal("expected cached value true")
	}

	remaining := server.TTL("onboarding:user-1")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}
}

func TestOnboardingStatusRepository_GetMiss(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewOnboardingStatusRepository(client, "onboarding")

	_, found, err := repo.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if found {
		t.Fatal("expected a cache miss")
	}
}

func TestOnboardingStatusRepository_StoresFalse(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewOnboardingStatusRepository(client, "onboarding")

	ctx := context.Background()
	if err := repo.Set(ctx, "user-1", false, time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	value, found, err := repo.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !found {
		t.Fatal("a stored false must still be a cache hit")
	}
	if value {
		t.Fatal("expected cached value false")
	}
}

func TestOnboardingStatusRepository_Invalidate(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewOnboardingStatusRepository(client, "onboarding")

	ctx := context.Background()
	if err := repo.Set(ctx, "user-1", true, time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := repo.Invalidate(ctx, "user-1"); err != nil {
		t.Fatalf("Invalidate returned error: %v", err)
	}

	_, found, err := repo.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if found {
		t.Fatal("expected a miss after invalidation")
	}
}
