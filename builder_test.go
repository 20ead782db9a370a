package goSession

import (
	"testing"
)

func TestBuildRequiresAuthProvider(t *testing.T) {
	_, err := New().
		WithProfileStore(newMockProfileStore()).
		Build()
	if err == nil {
		t.Fatal("expected error for missing auth provider")
	}
}

func TestBuildRequiresProfileStore(t *testing.T) {
	_, err := New().
		WithAuthProvider(newMockAuthProvider()).
		Build()
	if err == nil {
		t.Fatal("expected error for missing profile store")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Activity.IdleThreshold = 0

	_, err := New().
		WithConfig(cfg).
		WithAuthProvider(newMockAuthProvider()).
		WithProfileStore(newMockProfileStore()).
		Build()
	if err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	builder := New().
		WithAuthProvider(newMockAuthProvider()).
		WithProfileStore(newMockProfileStore())

	store, err := builder.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	defer store.Close()

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuildRegistersAuthSubscriptionLast(t *testing.T) {
	provider := newMockAuthProvider()
	provider.putAccount(testIdentity("u1"), "u1@school.test", "secret-1")
	provider.current = testIdentity("u1")

	profiles := newMockProfileStore()
	profiles.putRecord("u1", &ProfileRecord{Role: "teacher", IsActive: boolPtr(true)})

	// The provider delivers the persisted identity synchronously during Build;
	// the store must come out signed in without an explicit SignIn.
	store, err := New().
		WithAuthProvider(provider).
		WithProfileStore(profiles).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer store.Close()

	state := store.State()
	if !state.SignedIn() {
		t.Fatal("expected restored session from persisted identity")
	}
	if state.Profile.Role != RoleTeacher {
		t.Fatalf("expected teacher role, got %q", state.Profile.Role)
	}
}

func TestWithConfigIsolatedFromCallerMutation(t *testing.T) {
	cfg := DefaultConfig()
	builder := New().
		WithConfig(cfg).
		WithAuthProvider(newMockAuthProvider()).
		WithProfileStore(newMockProfileStore())

	cfg.Guard.RoleDestinations[RoleTeacher] = "/elsewhere"

	store, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer store.Close()

	if got := store.config.Guard.DestinationFor(RoleTeacher); got != "/teacher/dashboard" {
		t.Fatalf("expected config snapshot at WithConfig time, got %q", got)
	}
}
