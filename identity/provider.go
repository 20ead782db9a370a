// Package identity is a reference [goSession.AuthProvider]: an in-memory
// account registry with Argon2id credential verification, HS256 identity
// tokens, and synchronous auth-state callbacks.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/password"
)

var (
	// ErrDuplicateEmail is an exported constant or variable used by the session engine.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrAccountNotFound is an exported constant or variable used by the session engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNoActiveIdentity is an exported constant or variable used by the session engine.
	ErrNoActiveIdentity = errors.New("no identity signed in")
	// ErrTokenInvalid is an exported constant or variable used by the session engine.
	ErrTokenInvalid = errors.New("invalid identity token")
)

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// SigningKey signs identity tokens with HS256. At least 32 bytes.
	SigningKey []byte
	TokenTTL   time.Duration
	Issuer     string
	Password   password.Config
}

type account struct {
	id          string
	email       string
	displayName string
	photoURL    string
	hash        string
	disabled    bool
}

// Provider is an in-memory [goSession.AuthProvider]. One identity is signed
// in at a time, mirroring a client-side auth session.
//
// All methods are safe for concurrent use.
type Provider struct {
	cfg    Config
	hasher *password.Hasher

	mu           sync.Mutex
	byEmail      map[string]*account
	byID         map[string]*account
	current      *goSession.Identity
	listeners    map[uint64]func(*goSession.Identity)
	nextListener uint64
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(cfg Config) (*Provider, error) {
	if len(cfg.SigningKey) < 32 {
		return nil, errors.New("signing key must be at least 32 bytes")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 15 * time.Minute
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "goSession"
	}
	if cfg.Password == (password.Config{}) {
		cfg.Password = password.DefaultConfig()
	}

	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	return &Provider{
		cfg:       cfg,
		hasher:    hasher,
		byEmail:   map[string]*account{},
		byID:      map[string]*account{},
		listeners: map[uint64]func(*goSession.Identity){},
	}, nil
}

// Register creates an account and returns its identity ID.
func (p *Provider) Register(ctx context.Context, email, secret, displayName, photoURL string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", errors.New("email required")
	}

	hash, err := p.hasher.Hash(secret)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byEmail[email]; exists {
		return "", ErrDuplicateEmail
	}

	acct := &account{
		id:          uuid.NewString(),
		email:       email,
		displayName: displayName,
		photoURL:    photoURL,
		hash:        hash,
	}
	p.byEmail[email] = acct
	p.byID[acct.id] = acct
	return acct.id, nil
}

// Disable marks the account so future sign-ins fail. An already signed-in
// session is unaffected; deactivation eviction is the profile document's job.
func (p *Provider) Disable(ctx context.Context, identityID string) error {
	return p.setDisabled(identityID, true)
}

// Enable reverses [Provider.Disable].
func (p *Provider) Enable(ctx context.Context, identityID string) error {
	return p.setDisabled(identityID, false)
}

func (p *Provider) setDisabled(identityID string, disabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.byID[identityID]
	if !ok {
		return ErrAccountNotFound
	}
	acct.disabled = disabled
	return nil
}

// SignIn describes the sign-in operation and its observable behavior.
//
// SignIn verifies the credentials, installs the account as the current
// identity, and notifies registered auth-state callbacks before returning.
// Unknown emails, wrong secrets, and disabled accounts are indistinguishable
// to the caller.
func (p *Provider) SignIn(ctx context.Context, email, secret string) (*goSession.Identity, error) {
	email = normalizeEmail(email)

	p.mu.Lock()
	acct, ok := p.byEmail[email]
	p.mu.Unlock()
	if !ok {
		return nil, goSession.ErrInvalidCredentials
	}

	match, err := p.hasher.Verify(secret, acct.hash)
	if err != nil || !match {
		return nil, goSession.ErrInvalidCredentials
	}

	p.mu.Lock()
	if acct.disabled {
		p.mu.Unlock()
		return nil, goSession.ErrInvalidCredentials
	}
	ident := &goSession.Identity{
		ID:          acct.id,
		Email:       acct.email,
		DisplayName: acct.displayName,
		PhotoURL:    acct.photoURL,
	}
	p.current = ident
	fns := p.listenersLocked()
	p.mu.Unlock()

	for _, fn := range fns {
		fn(cloneIdentity(ident))
	}
	return cloneIdentity(ident), nil
}

// SignOut describes the sign-out operation and its observable behavior.
//
// SignOut clears the current identity and notifies auth-state callbacks with
// nil. Signing out with no identity is a no-op.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return nil
	}
	p.current = nil
	fns := p.listenersLocked()
	p.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}
	return nil
}

// OnAuthStateChange describes the onauthstatechange operation and its observable behavior.
//
// The callback is invoked synchronously with the current identity at
// registration time, resolving the initial persisted-session check, and then
// once per subsequent transition.
func (p *Provider) OnAuthStateChange(fn func(*goSession.Identity)) goSession.Unsubscribe {
	if fn == nil {
		return func() {}
	}

	p.mu.Lock()
	p.nextListener++
	id := p.nextListener
	p.listeners[id] = fn
	current := cloneIdentity(p.current)
	p.mu.Unlock()

	fn(current)

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// UpdateDisplayMetadata describes the updatedisplaymetadata operation and its observable behavior.
//
// The write updates the account record and the current identity in place
// without re-notifying auth-state callbacks, so metadata reconciliation
// cannot loop through the session store.
func (p *Provider) UpdateDisplayMetadata(ctx context.Context, identityID string, meta goSession.DisplayMetadata) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.byID[identityID]
	if !ok {
		return ErrAccountNotFound
	}
	acct.displayName = meta.Name
	acct.photoURL = meta.PhotoURL

	if p.current != nil && p.current.ID == identityID {
		p.current.DisplayName = meta.Name
		p.current.PhotoURL = meta.PhotoURL
	}
	return nil
}

// ListenerCount reports the number of registered auth-state callbacks.
func (p *Provider) ListenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

func (p *Provider) listenersLocked() []func(*goSession.Identity) {
	fns := make([]func(*goSession.Identity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneIdentity(in *goSession.Identity) *goSession.Identity {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}

/*
====================================
IDENTITY TOKENS
====================================
*/

type identityClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// IdentityToken mints a short-lived HS256 token for the signed-in identity,
// for handing the session to a backend API.
func (p *Provider) IdentityToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	current := cloneIdentity(p.current)
	p.mu.Unlock()

	if current == nil {
		return "", ErrNoActiveIdentity
	}

	now := time.Now()
	claims := identityClaims{
		Email: current.Email,
		Name:  current.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   current.ID,
			Issuer:    p.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.cfg.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.cfg.SigningKey)
}

// VerifyIdentityToken validates a token minted by [Provider.IdentityToken]
// and returns the identity it names.
func (p *Provider) VerifyIdentityToken(tokenString string) (*goSession.Identity, error) {
	var claims identityClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return p.cfg.SigningKey, nil
	}, jwt.WithIssuer(p.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return &goSession.Identity{
		ID:          claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
	}, nil
}
