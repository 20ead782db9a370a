package goSession

import "errors"

var (
	// ErrInvalidCredentials is an exported constant or variable used by the session engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrProviderUnavailable is an exported constant or variable used by the session engine.
	ErrProviderUnavailable = errors.New("auth provider unavailable")
	// ErrSignInUnknown is an exported constant or variable used by the session engine.
	ErrSignInUnknown = errors.New("sign-in failed")
	// ErrSignOutFailed is an exported constant or variable used by the session engine.
	ErrSignOutFailed = errors.New("sign-out failed")
	// ErrProfileNotFound is an exported constant or variable used by the session engine.
	ErrProfileNotFound = errors.New("profile document not found")
	// ErrProfileFetch is an exported constant or variable used by the session engine.
	ErrProfileFetch = errors.New("profile fetch failed")
	// ErrProfileSubscription is an exported constant or variable used by the session engine.
	ErrProfileSubscription = errors.New("profile subscription failed")
	// ErrMetadataSync is an exported constant or variable used by the session engine.
	ErrMetadataSync = errors.New("display metadata sync failed")
	// ErrStorageAccess is an exported constant or variable used by the session engine.
	ErrStorageAccess = errors.New("activity storage access failed")
	// ErrStoreNotReady is an exported constant or variable used by the session engine.
	ErrStoreNotReady = errors.New("session store not initialized")
	// ErrStoreClosed is an exported constant or variable used by the session engine.
	ErrStoreClosed = errors.New("session store closed")
	// ErrRoleInvalid is an exported constant or variable used by the session engine.
	ErrRoleInvalid = errors.New("invalid role")
)
