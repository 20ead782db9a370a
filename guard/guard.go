package guard

import (
	"sync"

	goSession "github.com/MrEthical07/goSession"
)

// Outcome is the rendering decision for a guarded subtree.
type Outcome uint8

const (
	// OutcomePlaceholder is an exported constant or variable used by the session engine.
	OutcomePlaceholder Outcome = iota
	// OutcomeRender is an exported constant or variable used by the session engine.
	OutcomeRender
	// OutcomeBlocked is an exported constant or variable used by the session engine.
	OutcomeBlocked
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomePlaceholder:
		return "placeholder"
	case OutcomeRender:
		return "render"
	case OutcomeBlocked:
		return "blocked"
	}
	return "unknown"
}

// Decision pairs an [Outcome] with the redirect target when blocked.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Guard protects one route subtree. A guard with requireAuth=true blocks
// unauthenticated sessions toward the login route; with requireAuth=false it
// blocks authenticated sessions toward their role destination. While the
// session is loading the guard always yields a placeholder and never
// navigates.
//
// Resolve is pure; Apply additionally navigates, at most once per distinct
// target, so repeated renders of the same state cannot stack redirects.
type Guard struct {
	nav         goSession.Navigator
	cfg         goSession.GuardConfig
	requireAuth bool
	metrics     *goSession.Metrics

	mu         sync.Mutex
	lastTarget string
}

// New constructs a guard for one subtree. nav and metrics may be nil; a nil
// nav makes Apply decision-only.
func New(nav goSession.Navigator, cfg goSession.GuardConfig, requireAuth bool, metrics *goSession.Metrics) *Guard {
	return &Guard{
		nav:         nav,
		cfg:         cfg,
		requireAuth: requireAuth,
		metrics:     metrics,
	}
}

// Resolve computes the decision for the given state without side effects.
func (g *Guard) Resolve(state goSession.SessionState) Decision {
	if state.Loading {
		return Decision{Outcome: OutcomePlaceholder}
	}

	if g.requireAuth {
		if state.Identity == nil {
			return Decision{Outcome: OutcomeBlocked, Target: g.cfg.LoginPath}
		}
		return Decision{Outcome: OutcomeRender}
	}

	if state.Identity != nil {
		return Decision{Outcome: OutcomeBlocked, Target: g.destinationFor(state)}
	}
	return Decision{Outcome: OutcomeRender}
}

// Apply resolves the state and, when blocked with a target not yet navigated
// to, issues exactly one navigation. A later render outcome resets the
// once-per-target latch so the next distinct transition redirects again.
func (g *Guard) Apply(state goSession.SessionState) Decision {
	d := g.Resolve(state)

	g.mu.Lock()
	fire := false
	switch d.Outcome {
	case OutcomeBlocked:
		if d.Target != "" && d.Target != g.lastTarget {
			g.lastTarget = d.Target
			fire = true
		}
	case OutcomeRender:
		g.lastTarget = ""
	}
	g.mu.Unlock()

	if d.Outcome == OutcomeBlocked {
		g.metricInc(goSession.MetricGuardBlocked)
	}
	if fire && g.nav != nil {
		g.metricInc(goSession.MetricRedirectIssued)
		g.nav.Navigate(d.Target)
	}
	return d
}

// Bind subscribes the guard to a session store so every published state is
// applied automatically.
func (g *Guard) Bind(store *goSession.Store) goSession.Unsubscribe {
	return store.Watch(func(state goSession.SessionState) {
		g.Apply(state)
	})
}

func (g *Guard) destinationFor(state goSession.SessionState) string {
	if state.Profile == nil {
		return g.cfg.DefaultPath
	}
	return g.cfg.DestinationFor(state.Profile.Role)
}

func (g *Guard) metricInc(id goSession.MetricID) {
	if g.metrics == nil {
		return
	}
	g.metrics.Inc(id)
}

// RoleGuard protects a subtree that additionally requires a specific role.
// Content is suppressed until the role check passes: an authenticated session
// whose profile has not resolved yet yields a placeholder, never a flash of
// protected content.
type RoleGuard struct {
	nav     goSession.Navigator
	cfg     goSession.GuardConfig
	require goSession.Role
	// mismatch is the redirect target for authenticated sessions with the
	// wrong role. Empty selects the session's own role destination.
	mismatch string
	metrics  *goSession.Metrics

	mu         sync.Mutex
	lastTarget string
}

// NewRole constructs a role-requiring guard. mismatchPath may be empty to
// send wrong-role sessions to their own role destination.
func NewRole(nav goSession.Navigator, cfg goSession.GuardConfig, require goSession.Role, mismatchPath string, metrics *goSession.Metrics) *RoleGuard {
	return &RoleGuard{
		nav:      nav,
		cfg:      cfg,
		require:  require,
		mismatch: mismatchPath,
		metrics:  metrics,
	}
}

// Resolve computes the decision for the given state without side effects.
func (g *RoleGuard) Resolve(state goSession.SessionState) Decision {
	if state.Loading {
		return Decision{Outcome: OutcomePlaceholder}
	}
	if state.Identity == nil {
		return Decision{Outcome: OutcomeBlocked, Target: g.cfg.LoginPath}
	}
	if state.Profile == nil {
		return Decision{Outcome: OutcomePlaceholder}
	}
	if state.Profile.Role != g.require {
		target := g.mismatch
		if target == "" {
			target = g.cfg.DestinationFor(state.Profile.Role)
		}
		return Decision{Outcome: OutcomeBlocked, Target: target}
	}
	return Decision{Outcome: OutcomeRender}
}

// Apply resolves the state and issues at most one navigation per distinct
// redirect target.
func (g *RoleGuard) Apply(state goSession.SessionState) Decision {
	d := g.Resolve(state)

	g.mu.Lock()
	fire := false
	switch d.Outcome {
	case OutcomeBlocked:
		if d.Target != "" && d.Target != g.lastTarget {
			g.lastTarget = d.Target
			fire = true
		}
	case OutcomeRender:
		g.lastTarget = ""
	}
	g.mu.Unlock()

	if d.Outcome == OutcomeBlocked && g.metrics != nil {
		g.metrics.Inc(goSession.MetricGuardBlocked)
	}
	if fire && g.nav != nil {
		if g.metrics != nil {
			g.metrics.Inc(goSession.MetricRedirectIssued)
		}
		g.nav.Navigate(d.Target)
	}
	return d
}
