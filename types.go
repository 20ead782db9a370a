package goSession

import (
	"context"
)

// Role identifies the access tier carried by a session profile.
//
//	Docs: docs/roles.md
type Role string

const (
	// RoleSuperAdmin is an exported constant or variable used by the session engine.
	RoleSuperAdmin Role = "super-admin"
	// RoleAdmin is an exported constant or variable used by the session engine.
	RoleAdmin Role = "admin"
	// RoleTeacher is an exported constant or variable used by the session engine.
	RoleTeacher Role = "teacher"
	// RoleParent is an exported constant or variable used by the session engine.
	RoleParent Role = "parent"
	// RoleStudent is an exported constant or variable used by the session engine.
	RoleStudent Role = "student"
	// RoleNone is an exported constant or variable used by the session engine.
	RoleNone Role = ""
)

// Valid reports whether r is one of the known role values.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleTeacher, RoleParent, RoleStudent:
		return true
	}
	return false
}

// Identity is the authentication-provider view of a signed-in user. It carries
// the provider's identifier plus the display metadata cached on the auth
// record. Instances are treated as immutable once published in a
// [SessionState]; the Store clones before sharing.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
}

// ActiveFlag is the three-valued activation state read off a raw profile
// document. The flag distinguishes an explicit false from an absent field:
// only [ActiveFalse] deactivates the account.
type ActiveFlag uint8

const (
	// ActiveUnspecified is an exported constant or variable used by the session engine.
	ActiveUnspecified ActiveFlag = iota
	// ActiveTrue is an exported constant or variable used by the session engine.
	ActiveTrue
	// ActiveFalse is an exported constant or variable used by the session engine.
	ActiveFalse
)

// ActiveFlagOf maps a nullable document field to its [ActiveFlag].
func ActiveFlagOf(v *bool) ActiveFlag {
	switch {
	case v == nil:
		return ActiveUnspecified
	case *v:
		return ActiveTrue
	default:
		return ActiveFalse
	}
}

// ProfileRecord is the raw profile document shape as stored in the profile
// backend. IsActive is nullable so that an absent field survives decoding
// distinct from an explicit false.
type ProfileRecord struct {
	Role      string `json:"role,omitempty"`
	Name      string `json:"name,omitempty"`
	PhotoURL  string `json:"photoURL,omitempty"`
	SchoolID  string `json:"schoolId,omitempty"`
	ClassID   string `json:"classId,omitempty"`
	StudentID string `json:"studentId,omitempty"`
	IsActive  *bool  `json:"isActive,omitempty"`
}

// Profile is the merged, presentation-ready profile published in a
// [SessionState]. Display fields fall back to the identity's cached metadata
// when the document leaves them empty, and the document's nullable activation
// flag is already collapsed into Active.
type Profile struct {
	Role      Role
	Name      string
	PhotoURL  string
	SchoolID  string
	ClassID   string
	StudentID string
	Active    bool
}

// SessionState is the triple observed by every session consumer. Loading is
// true from construction until the first auth-state callback resolves; after
// that Identity and Profile are either both populated or both nil.
type SessionState struct {
	Identity *Identity
	Profile  *Profile
	Loading  bool
}

// SignedIn reports whether the state carries an authenticated identity.
func (s SessionState) SignedIn() bool {
	return s.Identity != nil
}

// DisplayMetadata is the subset of profile fields mirrored back onto the
// auth record when they drift apart.
type DisplayMetadata struct {
	Name     string
	PhotoURL string
}

// Unsubscribe tears down a subscription. Implementations must be safe to
// call more than once.
type Unsubscribe func()

// AuthProvider is the authentication backend contract. Callbacks registered
// through OnAuthStateChange are the only path by which identity enters the
// Store; SignIn and SignOut request transitions but never report them.
//
//	Docs: docs/providers.md
type AuthProvider interface {
	SignIn(ctx context.Context, email, secret string) (*Identity, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(fn func(*Identity)) Unsubscribe
	UpdateDisplayMetadata(ctx context.Context, identityID string, meta DisplayMetadata) error
}

// ProfileStore is the profile-document backend contract. SubscribeDocument
// pushes the current document on every change; onChange receives exists=false
// when the document is deleted.
//
//	Docs: docs/providers.md
type ProfileStore interface {
	GetDocument(ctx context.Context, collection, id string) (*ProfileRecord, error)
	SubscribeDocument(collection, id string, onChange func(rec *ProfileRecord, exists bool), onError func(error)) Unsubscribe
}

// ActivityStorage is durable string-keyed storage for activity records. Get
// returns ok=false when the key is absent; backend failures surface as errors
// and are absorbed by callers.
//
//	Docs: docs/providers.md
type ActivityStorage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Navigator performs route transitions on behalf of the guard and the idle
// enforcer.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a plain function to the [Navigator] interface.
type NavigatorFunc func(path string)

// Navigate calls f(path).
func (f NavigatorFunc) Navigate(path string) { f(path) }

// Interaction identifies a user-interaction kind tracked for idle-timeout
// purposes.
type Interaction uint8

const (
	// InteractionPointerDown is an exported constant or variable used by the session engine.
	InteractionPointerDown Interaction = iota
	// InteractionPointerMove is an exported constant or variable used by the session engine.
	InteractionPointerMove
	// InteractionKeyPress is an exported constant or variable used by the session engine.
	InteractionKeyPress
	// InteractionScroll is an exported constant or variable used by the session engine.
	InteractionScroll
	// InteractionTouchStart is an exported constant or variable used by the session engine.
	InteractionTouchStart
	// InteractionClick is an exported constant or variable used by the session engine.
	InteractionClick
	// InteractionFocus is an exported constant or variable used by the session engine.
	InteractionFocus
)

// String returns the canonical event name for the interaction kind.
func (i Interaction) String() string {
	switch i {
	case InteractionPointerDown:
		return "pointer-down"
	case InteractionPointerMove:
		return "pointer-move"
	case InteractionKeyPress:
		return "key-press"
	case InteractionScroll:
		return "scroll"
	case InteractionTouchStart:
		return "touch-start"
	case InteractionClick:
		return "click"
	case InteractionFocus:
		return "focus"
	}
	return "unknown"
}

// DefaultTrackedInteractions returns the interaction kinds tracked when
// [ActivityConfig.TrackedInteractions] is left empty.
func DefaultTrackedInteractions() []Interaction {
	return []Interaction{
		InteractionPointerDown,
		InteractionPointerMove,
		InteractionKeyPress,
		InteractionScroll,
		InteractionTouchStart,
		InteractionClick,
		InteractionFocus,
	}
}
