package goSession

import (
	"testing"
	"time"
)

func TestConfigValidateRules(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "profile collection required",
			mutate: func(c *Config) {
				c.Session.ProfileCollection = ""
			},
			wantValid: false,
		},
		{
			name: "fallback role valid",
			mutate: func(c *Config) {
				c.Profile.FallbackRole = RoleTeacher
			},
			wantValid: true,
		},
		{
			name: "fallback role invalid",
			mutate: func(c *Config) {
				c.Profile.FallbackRole = Role("janitor")
			},
			wantValid: false,
		},
		{
			name: "fallback role empty invalid",
			mutate: func(c *Config) {
				c.Profile.FallbackRole = RoleNone
			},
			wantValid: false,
		},
		{
			name: "login path required",
			mutate: func(c *Config) {
				c.Guard.LoginPath = ""
			},
			wantValid: false,
		},
		{
			name: "login path must be absolute",
			mutate: func(c *Config) {
				c.Guard.LoginPath = "auth/login"
			},
			wantValid: false,
		},
		{
			name: "default path must be absolute",
			mutate: func(c *Config) {
				c.Guard.DefaultPath = "admin/dashboard"
			},
			wantValid: false,
		},
		{
			name: "role destinations unknown role",
			mutate: func(c *Config) {
				c.Guard.RoleDestinations[Role("janitor")] = "/janitor/dashboard"
			},
			wantValid: false,
		},
		{
			name: "role destinations relative path",
			mutate: func(c *Config) {
				c.Guard.RoleDestinations[RoleTeacher] = "teacher/dashboard"
			},
			wantValid: false,
		},
		{
			name: "idle threshold zero invalid",
			mutate: func(c *Config) {
				c.Activity.IdleThreshold = 0
			},
			wantValid: false,
		},
		{
			name: "idle threshold negative invalid",
			mutate: func(c *Config) {
				c.Activity.IdleThreshold = -time.Minute
			},
			wantValid: false,
		},
		{
			name: "tracked interactions custom valid",
			mutate: func(c *Config) {
				c.Activity.TrackedInteractions = []Interaction{InteractionClick, InteractionScroll}
			},
			wantValid: true,
		},
		{
			name: "tracked interactions unknown invalid",
			mutate: func(c *Config) {
				c.Activity.TrackedInteractions = []Interaction{Interaction(200)}
			},
			wantValid: false,
		},
		{
			name: "audit enabled requires buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "audit enabled with buffer valid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 64
			},
			wantValid: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigRoleDestinations(t *testing.T) {
	cfg := DefaultConfig()

	wants := map[Role]string{
		RoleSuperAdmin: "/super-admin/dashboard",
		RoleAdmin:      "/admin/dashboard",
		RoleTeacher:    "/teacher/dashboard",
		RoleParent:     "/parent/dashboard",
		RoleStudent:    "/parent/dashboard",
	}
	for role, want := range wants {
		if got := cfg.Guard.DestinationFor(role); got != want {
			t.Fatalf("destination for %q = %q, want %q", role, got, want)
		}
	}
	if got := cfg.Guard.DestinationFor(RoleNone); got != "/admin/dashboard" {
		t.Fatalf("destination for empty role = %q, want default", got)
	}
	if got := cfg.Guard.DestinationFor(Role("janitor")); got != "/admin/dashboard" {
		t.Fatalf("destination for unknown role = %q, want default", got)
	}
}

func TestDefaultConfigActivity(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Activity.IdleThreshold != 5*time.Minute {
		t.Fatalf("expected 5m idle threshold, got %s", cfg.Activity.IdleThreshold)
	}
	if len(cfg.Activity.TrackedInteractions) == 0 {
		t.Fatal("expected default tracked interactions")
	}
	if cfg.Profile.FallbackRole != RoleAdmin {
		t.Fatalf("expected admin fallback role, got %q", cfg.Profile.FallbackRole)
	}
}

func TestCloneConfigIsolatesMutableFields(t *testing.T) {
	original := DefaultConfig()
	clone := cloneConfig(original)

	clone.Guard.RoleDestinations[RoleTeacher] = "/elsewhere"
	clone.Activity.TrackedInteractions[0] = InteractionFocus

	if original.Guard.RoleDestinations[RoleTeacher] == "/elsewhere" {
		t.Fatal("expected role destination map to be deep-copied")
	}
	if original.Activity.TrackedInteractions[0] == InteractionFocus &&
		DefaultTrackedInteractions()[0] != InteractionFocus {
		t.Fatal("expected tracked interactions slice to be deep-copied")
	}
}
