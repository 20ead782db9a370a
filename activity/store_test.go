package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, prefix string) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client, prefix), mr
}

func TestGetAbsentKeyReportsNotOK(t *testing.T) {
	store, _ := newTestStore(t, "act")
	ctx := context.Background()

	value, ok, err := store.Get(ctx, "lastActivityTime")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || value != "" {
		t.Fatalf("expected absent key, got %q ok=%v", value, ok)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, "act")
	ctx := context.Background()

	if err := store.Set(ctx, "lastActivityTime", "1700000000000"); err != nil {
		t.Fatalf("set: %v", err)
	}

	value, ok, err := store.Get(ctx, "lastActivityTime")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || value != "1700000000000" {
		t.Fatalf("expected stored value, got %q ok=%v", value, ok)
	}
}

func TestRemoveDeletesKey(t *testing.T) {
	store, _ := newTestStore(t, "act")
	ctx := context.Background()

	if err := store.Set(ctx, "sessionStartTime", "1700000000000"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Remove(ctx, "sessionStartTime"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	_, ok, err := store.Get(ctx, "sessionStartTime")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected key removed")
	}
}

func TestRemoveAbsentKeyIsNoError(t *testing.T) {
	store, _ := newTestStore(t, "act")

	if err := store.Remove(context.Background(), "lastActivityTime"); err != nil {
		t.Fatalf("expected no error removing absent key, got %v", err)
	}
}

func TestKeysNamespacedByPrefix(t *testing.T) {
	store, mr := newTestStore(t, "tab1")
	ctx := context.Background()

	if err := store.Set(ctx, "lastActivityTime", "42"); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := mr.Get("tab1:lastActivityTime")
	if err != nil {
		t.Fatalf("expected prefixed key in redis: %v", err)
	}
	if got != "42" {
		t.Fatalf("expected raw value 42, got %q", got)
	}
}

func TestEmptyPrefixDefaults(t *testing.T) {
	store, mr := newTestStore(t, "")
	ctx := context.Background()

	if err := store.Set(ctx, "lastActivityTime", "1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := mr.Get("act:lastActivityTime"); err != nil {
		t.Fatalf("expected default prefix key: %v", err)
	}
}

func TestBackendFailureWrapped(t *testing.T) {
	store, mr := newTestStore(t, "act")
	mr.Close()
	ctx := context.Background()

	if _, _, err := store.Get(ctx, "lastActivityTime"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from get, got %v", err)
	}
	if err := store.Set(ctx, "lastActivityTime", "1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from set, got %v", err)
	}
	if err := store.Remove(ctx, "lastActivityTime"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from remove, got %v", err)
	}
	if err := store.Ping(ctx); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable from ping, got %v", err)
	}
}
