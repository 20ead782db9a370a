package idle

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/clock"
)

// State is the lifecycle state of the enforcer.
type State uint8

const (
	// StateInactive is an exported constant or variable used by the session engine.
	StateInactive State = iota
	// StateArmed is an exported constant or variable used by the session engine.
	StateArmed
	// StateExpired is an exported constant or variable used by the session engine.
	StateExpired
)

// Storage keys for the persisted activity record. Values are Unix epoch
// milliseconds encoded in decimal.
const (
	KeyLastActivity = "lastActivityTime"
	KeySessionStart = "sessionStartTime"
)

// ExpireFunc performs the sign-out when the idle threshold elapses.
// [goSession.Store.ExpireIdle] is the usual implementation.
type ExpireFunc func(ctx context.Context) error

// Enforcer is the idle-timeout state machine. It is inactive until Arm,
// armed while an identity is signed in, and expired transiently while the
// timeout sign-out runs.
//
// All methods are safe for concurrent use. Storage failures never break the
// countdown: the enforcer logs them and proceeds as if the record were
// absent.
type Enforcer struct {
	storage goSession.ActivityStorage
	expire  ExpireFunc
	nav     goSession.Navigator
	clk     clock.Clock
	metrics *goSession.Metrics

	threshold time.Duration
	loginPath string
	keyPrefix string
	tracked   map[goSession.Interaction]struct{}

	mu           sync.Mutex
	state        State
	hidden       bool
	lastActivity time.Time
	timer        clock.Timer

	// persistMu serializes storage writes so persisted timestamps never go
	// backwards even when interactions race.
	persistMu     sync.Mutex
	lastPersisted map[string]int64
}

// New constructs an enforcer from the activity section of cfg. A nil clk
// selects the system clock; nav and metrics may be nil.
func New(storage goSession.ActivityStorage, expire ExpireFunc, nav goSession.Navigator, clk clock.Clock, cfg goSession.Config, metrics *goSession.Metrics) *Enforcer {
	if clk == nil {
		clk = clock.System()
	}

	kinds := cfg.Activity.TrackedInteractions
	if len(kinds) == 0 {
		kinds = goSession.DefaultTrackedInteractions()
	}
	tracked := make(map[goSession.Interaction]struct{}, len(kinds))
	for _, kind := range kinds {
		tracked[kind] = struct{}{}
	}

	threshold := cfg.Activity.IdleThreshold
	if threshold <= 0 {
		threshold = 5 * time.Minute
	}

	return &Enforcer{
		storage:       storage,
		expire:        expire,
		nav:           nav,
		clk:           clk,
		metrics:       metrics,
		threshold:     threshold,
		loginPath:     cfg.Guard.LoginPath,
		keyPrefix:     cfg.Activity.StorageKeyPrefix,
		tracked:       tracked,
		lastPersisted: map[string]int64{},
	}
}

// Bind subscribes the enforcer to a session store: it arms whenever an
// identity is published and disarms when the session clears. The returned
// unsubscribe detaches the enforcer without disarming it.
func (e *Enforcer) Bind(store *goSession.Store) goSession.Unsubscribe {
	return store.Watch(func(st goSession.SessionState) {
		ctx := context.Background()
		switch {
		case st.Loading:
		case st.Identity != nil:
			e.Arm(ctx)
		default:
			e.Disarm(ctx)
		}
	})
}

// State returns the current lifecycle state.
func (e *Enforcer) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Arm starts the idle countdown. A persisted activity record that has
// already crossed the threshold (a stale session from a previous run)
// expires immediately instead of arming. Arming is idempotent while armed.
func (e *Enforcer) Arm(ctx context.Context) {
	e.mu.Lock()
	if e.state == StateArmed {
		e.mu.Unlock()
		return
	}

	now := e.clk.Now()
	stored, ok := e.readStamp(ctx, KeyLastActivity)
	if ok && now.Sub(stored) >= e.threshold {
		// Stale record from a previous run; the session is already over.
		e.state = StateExpired
		e.mu.Unlock()
		e.finishExpiry(ctx)
		return
	}

	e.state = StateArmed
	e.hidden = false
	if ok && stored.Before(now) {
		// Resume the existing countdown rather than granting a full
		// threshold on reload.
		e.lastActivity = stored
	} else {
		e.lastActivity = now
	}
	e.scheduleLocked(now)
	last := e.lastActivity
	fresh := !ok
	e.mu.Unlock()

	if fresh {
		e.persistStamp(ctx, KeySessionStart, now)
	}
	e.persistStamp(ctx, KeyLastActivity, last)
}

// Disarm stops the countdown and clears the persisted activity record.
func (e *Enforcer) Disarm(ctx context.Context) {
	e.mu.Lock()
	if e.state == StateInactive {
		e.mu.Unlock()
		return
	}
	e.state = StateInactive
	e.hidden = false
	if e.timer != nil {
		e.timer.Stop()
	}
	e.mu.Unlock()

	e.clearRecord(ctx)
}

// RecordInteraction resets the idle countdown for a tracked interaction kind
// and persists the fresh activity timestamp. Untracked kinds and calls while
// not armed are ignored.
func (e *Enforcer) RecordInteraction(ctx context.Context, kind goSession.Interaction) {
	e.mu.Lock()
	if e.state != StateArmed {
		e.mu.Unlock()
		return
	}
	if _, ok := e.tracked[kind]; !ok {
		e.mu.Unlock()
		return
	}

	now := e.clk.Now()
	if now.After(e.lastActivity) {
		e.lastActivity = now
	}
	if !e.hidden {
		e.scheduleLocked(now)
	}
	last := e.lastActivity
	e.mu.Unlock()

	e.metricInc(goSession.MetricActivityReset)
	e.persistStamp(ctx, KeyLastActivity, last)
}

// VisibilityHidden records the hide boundary: the current timestamp is
// persisted and the scheduled callback is suspended. Wall-clock time while
// hidden still counts toward expiry; VisibilityRegained reconciles it.
func (e *Enforcer) VisibilityHidden(ctx context.Context) {
	e.mu.Lock()
	if e.state != StateArmed {
		e.mu.Unlock()
		return
	}
	e.hidden = true
	if e.timer != nil {
		e.timer.Stop()
	}
	now := e.clk.Now()
	if now.After(e.lastActivity) {
		e.lastActivity = now
	}
	last := e.lastActivity
	e.mu.Unlock()

	e.persistStamp(ctx, KeyLastActivity, last)
}

// VisibilityRegained reconciles elapsed hidden time against the persisted
// record: if the threshold has passed the session expires immediately,
// otherwise the countdown resumes for the remainder. The persisted record is
// consulted so a refresh from another tab extends this one.
func (e *Enforcer) VisibilityRegained(ctx context.Context) {
	e.mu.Lock()
	if e.state != StateArmed {
		e.mu.Unlock()
		return
	}
	e.hidden = false
	now := e.clk.Now()
	last := e.lastActivity

	if stored, ok := e.readStamp(ctx, KeyLastActivity); ok && stored.After(last) {
		last = stored
	}

	if now.Sub(last) >= e.threshold {
		e.state = StateExpired
		e.mu.Unlock()
		e.finishExpiry(ctx)
		return
	}

	if last.After(e.lastActivity) {
		e.lastActivity = last
	}
	e.scheduleLocked(now)
	e.mu.Unlock()
}

// Stop halts the countdown without clearing the persisted record, for
// shutdown paths where the session should survive a restart.
func (e *Enforcer) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.state = StateInactive
	e.hidden = false
}

func (e *Enforcer) onTimer() {
	ctx := context.Background()

	e.mu.Lock()
	if e.state != StateArmed || e.hidden {
		e.mu.Unlock()
		return
	}
	now := e.clk.Now()
	if now.Sub(e.lastActivity) < e.threshold {
		// An interaction raced the timer; rearm for the remainder.
		e.scheduleLocked(now)
		e.mu.Unlock()
		return
	}
	e.state = StateExpired
	e.mu.Unlock()

	e.finishExpiry(ctx)
}

func (e *Enforcer) finishExpiry(ctx context.Context) {
	e.clearRecord(ctx)

	if e.expire != nil {
		if err := e.expire(ctx); err != nil {
			log.Print("goSession: idle expiry sign-out failed")
		}
	}
	if e.nav != nil {
		e.nav.Navigate(e.loginPath)
	}

	e.mu.Lock()
	if e.state == StateExpired {
		e.state = StateInactive
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.mu.Unlock()
}

// scheduleLocked arms the timer for the remainder of the threshold measured
// from lastActivity. Caller holds e.mu.
func (e *Enforcer) scheduleLocked(now time.Time) {
	remaining := e.threshold - now.Sub(e.lastActivity)
	if remaining < 0 {
		remaining = 0
	}
	if e.timer == nil {
		e.timer = e.clk.AfterFunc(remaining, e.onTimer)
		return
	}
	e.timer.Reset(remaining)
}

/*
====================================
ACTIVITY RECORD PERSISTENCE
====================================
*/

func (e *Enforcer) key(name string) string {
	return e.keyPrefix + name
}

// readStamp loads a persisted timestamp, absorbing storage failures and
// unparsable values as an absent record.
func (e *Enforcer) readStamp(ctx context.Context, name string) (time.Time, bool) {
	if e.storage == nil {
		return time.Time{}, false
	}

	raw, ok, err := e.storage.Get(ctx, e.key(name))
	if err != nil {
		e.metricInc(goSession.MetricStorageFailure)
		log.Print("goSession: activity storage read failed")
		return time.Time{}, false
	}
	if !ok {
		return time.Time{}, false
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Print("goSession: activity record is corrupt, ignoring")
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// persistStamp writes a timestamp, keeping the stored value monotonically
// non-decreasing across racing writers.
func (e *Enforcer) persistStamp(ctx context.Context, name string, t time.Time) {
	if e.storage == nil {
		return
	}

	ms := t.UnixMilli()
	key := e.key(name)

	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	if prev, ok := e.lastPersisted[key]; ok && ms < prev {
		return
	}
	if err := e.storage.Set(ctx, key, strconv.FormatInt(ms, 10)); err != nil {
		e.metricInc(goSession.MetricStorageFailure)
		log.Print("goSession: activity storage write failed")
		return
	}
	e.lastPersisted[key] = ms
}

func (e *Enforcer) clearRecord(ctx context.Context) {
	if e.storage == nil {
		return
	}

	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	for _, name := range []string{KeyLastActivity, KeySessionStart} {
		key := e.key(name)
		if err := e.storage.Remove(ctx, key); err != nil {
			e.metricInc(goSession.MetricStorageFailure)
			log.Print("goSession: activity storage remove failed")
			continue
		}
		delete(e.lastPersisted, key)
	}
}

func (e *Enforcer) metricInc(id goSession.MetricID) {
	if e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
