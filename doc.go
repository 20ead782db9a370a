// Package goSession provides the client-side session core for role-gated
// single-page admin applications: an identity session store fed by auth-state
// and profile-document subscriptions, role-aware route guarding, and an idle
// expiry enforcer backed by durable activity records.
//
// The package is designed for concurrent UI runtimes: Store methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Store], [Builder], [Config], and
// value types (SessionState, Profile, MetricsSnapshot, etc.). Route guarding
// lives under guard/, idle expiry under idle/, and concrete backends for the
// injected interfaces under identity/, docstore/, and activity/.
//
// # What this package must NOT do
//
//   - Expose backend clients, storage encodings, or subscription plumbing in
//     its public API.
//   - Perform I/O outside of Store methods and subscription callbacks
//     (construction via Builder is allocation-only until Build).
//   - Import any sub-package that re-imports goSession (no import cycles).
//
// # Consistency contract
//
// The Store is the single source of truth for session state. Identity and
// profile only change through provider callbacks; SignIn and SignOut delegate
// to the provider and never write state directly. Watchers observe every
// published transition in order.
package goSession
