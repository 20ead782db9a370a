package goSession

import (
	"errors"
	"strings"
	"time"
)

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Session  SessionConfig
	Profile  ProfileConfig
	Guard    GuardConfig
	Activity ActivityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by goSession APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	ProfileCollection        string
	ReconcileDisplayMetadata bool
}

/*
====================================
PROFILE CONFIG
====================================
*/

// ProfileConfig defines a public type used by goSession APIs.
//
// ProfileConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ProfileConfig struct {
	// FallbackRole is assigned to the degraded default profile published when
	// the profile document is missing or unreadable.
	FallbackRole Role
}

/*
====================================
GUARD CONFIG
====================================
*/

// GuardConfig defines a public type used by goSession APIs.
//
// GuardConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type GuardConfig struct {
	LoginPath        string
	DefaultPath      string
	RoleDestinations map[Role]string
}

// DestinationFor returns the post-login destination for the given role,
// falling back to DefaultPath for unknown or empty roles.
func (g GuardConfig) DestinationFor(role Role) string {
	if path, ok := g.RoleDestinations[role]; ok && path != "" {
		return path
	}
	return g.DefaultPath
}

/*
====================================
ACTIVITY CONFIG
====================================
*/

// ActivityConfig defines a public type used by goSession APIs.
//
// ActivityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ActivityConfig struct {
	IdleThreshold       time.Duration
	TrackedInteractions []Interaction
	StorageKeyPrefix    string
}

// AuditConfig defines a public type used by goSession APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goSession APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration applied by [New] before any
// WithConfig override.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			ProfileCollection:        "users",
			ReconcileDisplayMetadata: true,
		},
		Profile: ProfileConfig{
			FallbackRole: RoleAdmin,
		},
		Guard: GuardConfig{
			LoginPath:   "/auth/login",
			DefaultPath: "/admin/dashboard",
			RoleDestinations: map[Role]string{
				RoleSuperAdmin: "/super-admin/dashboard",
				RoleAdmin:      "/admin/dashboard",
				RoleTeacher:    "/teacher/dashboard",
				RoleParent:     "/parent/dashboard",
				RoleStudent:    "/parent/dashboard",
			},
		},
		Activity: ActivityConfig{
			IdleThreshold:       5 * time.Minute,
			TrackedInteractions: DefaultTrackedInteractions(),
			StorageKeyPrefix:    "",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Guard.RoleDestinations != nil {
		out.Guard.RoleDestinations = make(map[Role]string, len(cfg.Guard.RoleDestinations))
		for role, path := range cfg.Guard.RoleDestinations {
			out.Guard.RoleDestinations[role] = path
		}
	}
	if cfg.Activity.TrackedInteractions != nil {
		out.Activity.TrackedInteractions = make([]Interaction, len(cfg.Activity.TrackedInteractions))
		copy(out.Activity.TrackedInteractions, cfg.Activity.TrackedInteractions)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Session
	if c.Session.ProfileCollection == "" {
		return errors.New("Session ProfileCollection is required")
	}

	// Profile
	if !c.Profile.FallbackRole.Valid() {
		return errors.New("Profile FallbackRole must be a known role")
	}

	// Guard
	if c.Guard.LoginPath == "" {
		return errors.New("Guard LoginPath is required")
	}
	if !strings.HasPrefix(c.Guard.LoginPath, "/") {
		return errors.New("Guard LoginPath must be absolute")
	}
	if c.Guard.DefaultPath == "" {
		return errors.New("Guard DefaultPath is required")
	}
	if !strings.HasPrefix(c.Guard.DefaultPath, "/") {
		return errors.New("Guard DefaultPath must be absolute")
	}
	for role, path := range c.Guard.RoleDestinations {
		if !role.Valid() {
			return errors.New("Guard RoleDestinations contains an unknown role")
		}
		if !strings.HasPrefix(path, "/") {
			return errors.New("Guard RoleDestinations paths must be absolute")
		}
	}

	// Activity
	if c.Activity.IdleThreshold <= 0 {
		return errors.New("Activity IdleThreshold must be > 0")
	}
	for _, kind := range c.Activity.TrackedInteractions {
		if kind.String() == "unknown" {
			return errors.New("Activity TrackedInteractions contains an unknown interaction")
		}
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}
