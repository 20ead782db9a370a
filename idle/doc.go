// Package idle enforces the session idle timeout. An [Enforcer] arms when an
// identity signs in, resets on tracked user interactions, persists activity
// timestamps to durable storage so restarts and hidden tabs are survivable,
// and performs a full sign-out with a redirect to the login route once the
// idle threshold elapses.
package idle
