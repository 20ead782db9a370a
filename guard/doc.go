// Package guard decides what a route subtree may render for a given session
// state: a loading placeholder, the protected content, or a redirect. Guards
// are pure over ([goSession.SessionState], static configuration); Apply adds
// the single side effect of issuing at most one navigation per distinct
// redirect target.
package guard
