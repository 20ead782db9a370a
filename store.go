package goSession

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Store is the single source of truth for session state. It owns the
// auth-state subscription, the per-identity profile-document subscription,
// and the merged [SessionState] observed by every consumer.
//
// Identity and profile only change through provider callbacks. SignIn and
// SignOut request transitions from the provider; the published state follows
// from the resulting callbacks, never from the call sites directly.
//
// Store methods are safe for concurrent use after [Builder.Build] returns.
//
//	Docs: docs/store.md
type Store struct {
	config   Config
	provider AuthProvider
	profiles ProfileStore
	audit    *auditDispatcher
	metrics  *Metrics

	mu sync.Mutex
	// generation invalidates in-flight profile work whenever the signed-in
	// identity changes. Callbacks carry the generation they were created
	// under and drop themselves when it no longer matches.
	generation    uint64
	state         SessionState
	profileUnsub  Unsubscribe
	authUnsub     Unsubscribe
	watchers      map[uint64]func(SessionState)
	nextWatcherID uint64
	closed        bool
}

/*
====================================
AUTH CALLBACK PIPELINE
====================================
*/

// handleAuthChange is the sole entry point for identity transitions. The
// registered auth-state callback delivers here for every provider event,
// including the resolution of the initial persisted-session check.
func (s *Store) handleAuthChange(identity *Identity) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	gen := s.generation
	prevUnsub := s.profileUnsub
	s.profileUnsub = nil
	s.mu.Unlock()

	// The outgoing identity's profile subscription is torn down strictly
	// before any state for the incoming identity is derived.
	if prevUnsub != nil {
		prevUnsub()
	}

	if identity == nil {
		s.publish(gen, SessionState{})
		return
	}

	s.resolveProfile(cloneIdentity(identity), gen)
}

// resolveProfile fetches the identity's profile document, publishes the
// merged state, and establishes the live document subscription.
func (s *Store) resolveProfile(ident *Identity, gen uint64) {
	ctx := context.Background()
	start := time.Now()

	record, err := s.profiles.GetDocument(ctx, s.config.Session.ProfileCollection, ident.ID)
	s.metricObserve(MetricResolveLatency, time.Since(start))

	var profile *Profile
	switch {
	case err != nil:
		// A missing or unreadable document degrades to the fallback
		// profile; the session itself survives.
		wrapped := err
		if !errors.Is(err, ErrProfileNotFound) {
			wrapped = fmt.Errorf("%w: %v", ErrProfileFetch, err)
			log.Print("goSession: profile fetch failed, applying fallback profile")
		}
		s.metricInc(MetricProfileFallback)
		s.emitAudit(ctx, auditEventProfileFallback, false, ident.ID, RoleNone, wrapped, nil)
		profile = s.fallbackProfile(ident)
	case record == nil:
		s.metricInc(MetricProfileFallback)
		s.emitAudit(ctx, auditEventProfileFallback, false, ident.ID, RoleNone, ErrProfileNotFound, nil)
		profile = s.fallbackProfile(ident)
	default:
		profile = s.mergeProfile(ident, record)
	}

	if !profile.Active {
		s.evict(ctx, ident, gen)
		return
	}

	s.metricInc(MetricProfileApplied)
	s.emitAudit(ctx, auditEventProfileApplied, true, ident.ID, profile.Role, nil, nil)
	s.publish(gen, SessionState{Identity: ident, Profile: profile})
	s.maybeReconcileMetadata(ident, profile)

	unsub := s.profiles.SubscribeDocument(
		s.config.Session.ProfileCollection,
		ident.ID,
		func(rec *ProfileRecord, exists bool) { s.handleProfileChange(ident, gen, rec, exists) },
		func(err error) { s.handleProfileError(ident, gen, err) },
	)

	s.mu.Lock()
	if s.closed || s.generation != gen {
		s.mu.Unlock()
		unsub()
		return
	}
	s.profileUnsub = unsub
	s.mu.Unlock()
}

// handleProfileChange applies a pushed document update for the identity that
// owns the subscription. Stale deliveries from a superseded subscription are
// dropped by the generation check.
func (s *Store) handleProfileChange(ident *Identity, gen uint64, rec *ProfileRecord, exists bool) {
	if !s.generationCurrent(gen) {
		return
	}

	ctx := context.Background()

	var profile *Profile
	if !exists || rec == nil {
		s.metricInc(MetricProfileFallback)
		s.emitAudit(ctx, auditEventProfileFallback, false, ident.ID, RoleNone, ErrProfileNotFound, nil)
		profile = s.fallbackProfile(ident)
	} else {
		profile = s.mergeProfile(ident, rec)
	}

	if !profile.Active {
		s.evict(ctx, ident, gen)
		return
	}

	s.publish(gen, SessionState{Identity: ident, Profile: profile})
	s.maybeReconcileMetadata(ident, profile)
}

// handleProfileError absorbs subscription failures. The last merged state
// stays published; the subscription is not re-established automatically.
func (s *Store) handleProfileError(ident *Identity, gen uint64, err error) {
	if !s.generationCurrent(gen) {
		return
	}
	s.metricInc(MetricProfileSubscriptionError)
	s.emitAudit(context.Background(), auditEventProfileSubscription, false, ident.ID, RoleNone,
		fmt.Errorf("%w: %v", ErrProfileSubscription, err), nil)
	log.Print("goSession: profile subscription error, retaining last known profile")
}

// evict performs the deactivation flow: clear state, tear down the profile
// subscription, and request exactly one provider sign-out.
func (s *Store) evict(ctx context.Context, ident *Identity, gen uint64) {
	s.mu.Lock()
	if s.closed || s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.generation++
	next := s.generation
	prevUnsub := s.profileUnsub
	s.profileUnsub = nil
	s.mu.Unlock()

	if prevUnsub != nil {
		prevUnsub()
	}

	s.publish(next, SessionState{})
	s.metricInc(MetricForcedSignOut)
	s.emitAudit(ctx, auditEventForcedSignOut, true, ident.ID, RoleNone, nil, func() map[string]string {
		return map[string]string{"reason": "deactivated"}
	})

	if err := s.provider.SignOut(ctx); err != nil {
		log.Print("goSession: provider sign-out failed during eviction")
	}
}

func (s *Store) generationCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.generation == gen
}

/*
====================================
MERGE RULE
====================================
*/

// mergeProfile applies the document-over-identity merge: document fields win,
// empty display fields fall back to the identity's cached metadata, and the
// nullable activation flag collapses so that only an explicit false
// deactivates.
func (s *Store) mergeProfile(ident *Identity, rec *ProfileRecord) *Profile {
	role := Role(rec.Role)
	if !role.Valid() {
		role = s.config.Profile.FallbackRole
	}

	name := rec.Name
	if name == "" {
		name = ident.DisplayName
	}
	photo := rec.PhotoURL
	if photo == "" {
		photo = ident.PhotoURL
	}

	return &Profile{
		Role:      role,
		Name:      name,
		PhotoURL:  photo,
		SchoolID:  rec.SchoolID,
		ClassID:   rec.ClassID,
		StudentID: rec.StudentID,
		Active:    ActiveFlagOf(rec.IsActive) != ActiveFalse,
	}
}

// fallbackProfile is the degraded default published when no document can be
// read: identity display metadata plus the configured fallback role.
func (s *Store) fallbackProfile(ident *Identity) *Profile {
	return &Profile{
		Role:     s.config.Profile.FallbackRole,
		Name:     ident.DisplayName,
		PhotoURL: ident.PhotoURL,
		Active:   true,
	}
}

// maybeReconcileMetadata pushes profile display fields back onto the auth
// record when they drift apart. The write is asynchronous and never affects
// the published state; failures are logged and absorbed.
func (s *Store) maybeReconcileMetadata(ident *Identity, profile *Profile) {
	if !s.config.Session.ReconcileDisplayMetadata {
		return
	}
	if ident.DisplayName == profile.Name && ident.PhotoURL == profile.PhotoURL {
		return
	}

	id := ident.ID
	meta := DisplayMetadata{Name: profile.Name, PhotoURL: profile.PhotoURL}
	go func() {
		if err := s.provider.UpdateDisplayMetadata(context.Background(), id, meta); err != nil {
			s.metricInc(MetricMetadataSyncFailure)
			s.emitAudit(context.Background(), auditEventMetadataSyncFailure, false, id, RoleNone,
				fmt.Errorf("%w: %v", ErrMetadataSync, err), nil)
			log.Print("goSession: display metadata sync failed")
		}
	}()
}

/*
====================================
STATE PUBLICATION
====================================
*/

// publish installs the new state and notifies watchers. The generation check
// keeps a superseded pipeline from clobbering a newer identity's state.
func (s *Store) publish(gen uint64, next SessionState) {
	s.mu.Lock()
	if s.closed || s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.state = next
	fns := make([]func(SessionState), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	snapshot := copyState(next)
	for _, fn := range fns {
		fn(snapshot)
	}
}

// State returns a copy of the current session state. Mutating the returned
// pointers does not affect the Store.
func (s *Store) State() SessionState {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	return copyState(state)
}

// CurrentRole returns the role of the published profile, or [RoleNone] while
// loading or signed out.
func (s *Store) CurrentRole() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Profile == nil {
		return RoleNone
	}
	return s.state.Profile.Role
}

// Watch registers a callback invoked with the current state immediately and
// then once per published transition. The returned [Unsubscribe] removes the
// watcher and is safe to call more than once.
func (s *Store) Watch(fn func(SessionState)) Unsubscribe {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	s.nextWatcherID++
	id := s.nextWatcherID
	s.watchers[id] = fn
	current := s.state
	s.mu.Unlock()

	fn(copyState(current))

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// ProfileSubscriptionAlive reports whether a live profile-document
// subscription is currently established.
func (s *Store) ProfileSubscriptionAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileUnsub != nil
}

/*
====================================
PUBLIC OPERATIONS
====================================
*/

// SignIn describes the sign-in operation and its observable behavior.
//
// SignIn delegates the credential exchange to the configured [AuthProvider].
// On success the published state is unchanged until the provider's auth-state
// callback fires; SignIn never writes state directly.
// SignIn may return [ErrInvalidCredentials], [ErrProviderUnavailable], or an
// error wrapping [ErrSignInUnknown].
func (s *Store) SignIn(ctx context.Context, email, secret string) error {
	if s == nil || s.provider == nil {
		return ErrStoreNotReady
	}
	if email == "" || secret == "" {
		s.metricInc(MetricSignInFailure)
		s.emitAudit(ctx, auditEventSignInFailure, false, "", RoleNone, ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	ident, err := s.provider.SignIn(ctx, email, secret)
	if err != nil {
		err = classifySignInError(err)
		s.metricInc(MetricSignInFailure)
		s.emitAudit(ctx, auditEventSignInFailure, false, "", RoleNone, err, func() map[string]string {
			return map[string]string{"email": email}
		})
		return err
	}

	s.metricInc(MetricSignInSuccess)
	s.emitAudit(ctx, auditEventSignInSuccess, true, ident.ID, RoleNone, nil, nil)
	return nil
}

func classifySignInError(err error) error {
	if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrProviderUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrSignInUnknown, err)
}

// SignOut describes the sign-out operation and its observable behavior.
//
// SignOut tears down the profile subscription, clears the published state,
// and requests a provider sign-out. When no identity is signed in, SignOut is
// a no-op that succeeds without a provider round-trip.
func (s *Store) SignOut(ctx context.Context) error {
	if s == nil || s.provider == nil {
		return ErrStoreNotReady
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	hadIdentity := s.state.Identity != nil
	s.generation++
	gen := s.generation
	prevUnsub := s.profileUnsub
	s.profileUnsub = nil
	s.mu.Unlock()

	if prevUnsub != nil {
		prevUnsub()
	}

	s.publish(gen, SessionState{})

	if !hadIdentity {
		return nil
	}

	s.metricInc(MetricSignOut)
	s.emitAudit(ctx, auditEventSignOut, true, "", RoleNone, nil, nil)

	if err := s.provider.SignOut(ctx); err != nil {
		s.emitAudit(ctx, auditEventSignOut, false, "", RoleNone, fmt.Errorf("%w: %v", ErrSignOutFailed, err), nil)
		return fmt.Errorf("%w: %v", ErrSignOutFailed, err)
	}
	return nil
}

// ExpireIdle performs the idle-timeout sign-out on behalf of the expiry
// enforcer: it records the expiry event and then runs the regular SignOut
// flow.
func (s *Store) ExpireIdle(ctx context.Context) error {
	if s == nil {
		return ErrStoreNotReady
	}
	s.metricInc(MetricIdleExpiry)
	s.emitAudit(ctx, auditEventIdleExpiry, true, "", RoleNone, nil, nil)
	return s.SignOut(ctx)
}

// Close tears down the auth-state subscription, any live profile
// subscription, and the audit dispatcher. The Store publishes nothing after
// Close returns.
func (s *Store) Close() {
	if s == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	authUnsub := s.authUnsub
	profileUnsub := s.profileUnsub
	s.authUnsub = nil
	s.profileUnsub = nil
	s.watchers = map[uint64]func(SessionState){}
	s.mu.Unlock()

	if profileUnsub != nil {
		profileUnsub()
	}
	if authUnsub != nil {
		authUnsub()
	}
	s.audit.Close()
}

/*
====================================
OBSERVABILITY ACCESSORS
====================================
*/

// Metrics returns the metrics instance shared by the Store, so guards and
// enforcers built around it can record into the same counters.
func (s *Store) Metrics() *Metrics {
	if s == nil {
		return nil
	}
	return s.metrics
}

// MetricsSnapshot returns a point-in-time copy of all counters and
// histograms.
func (s *Store) MetricsSnapshot() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}, Histograms: map[MetricID][]uint64{}}
	}
	return s.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped under dispatcher
// backpressure.
func (s *Store) AuditDropped() uint64 {
	if s == nil {
		return 0
	}
	return s.audit.Dropped()
}

func (s *Store) metricInc(id MetricID) {
	if s == nil {
		return
	}
	s.metrics.Inc(id)
}

func (s *Store) metricObserve(id MetricID, d time.Duration) {
	if s == nil {
		return
	}
	s.metrics.Observe(id, d)
}

/*
====================================
COPY HELPERS
====================================
*/

func cloneIdentity(in *Identity) *Identity {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}

func cloneProfile(in *Profile) *Profile {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}

func copyState(in SessionState) SessionState {
	return SessionState{
		Identity: cloneIdentity(in.Identity),
		Profile:  cloneProfile(in.Profile),
		Loading:  in.Loading,
	}
}
