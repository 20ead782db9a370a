package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(Config{SigningKey: testSigningKey})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func register(t *testing.T, p *Provider, email, secret string) string {
	t.Helper()
	id, err := p.Register(context.Background(), email, secret, "Alice Teacher", "https://example.test/a.png")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return id
}

func TestNewRejectsShortSigningKey(t *testing.T) {
	if _, err := New(Config{SigningKey: []byte("short")}); err == nil {
		t.Fatal("expected error for short signing key")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	p := newTestProvider(t)
	register(t, p, "alice@school.test", "secret-1")

	_, err := p.Register(context.Background(), "ALICE@School.Test", "other", "", "")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail for case-insensitive duplicate, got %v", err)
	}
}

func TestSignInSuccessPublishesIdentity(t *testing.T) {
	p := newTestProvider(t)
	id := register(t, p, "alice@school.test", "secret-1")

	ident, err := p.SignIn(context.Background(), "Alice@School.Test", "secret-1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if ident.ID != id || ident.Email != "alice@school.test" || ident.DisplayName != "Alice Teacher" {
		t.Fatalf("unexpected identity %+v", ident)
	}
}

func TestSignInFailuresAreIndistinguishable(t *testing.T) {
	p := newTestProvider(t)
	id := register(t, p, "alice@school.test", "secret-1")

	ctx := context.Background()
	if _, err := p.SignIn(ctx, "alice@school.test", "wrong"); !errors.Is(err, goSession.ErrInvalidCredentials) {
		t.Fatalf("wrong secret: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := p.SignIn(ctx, "nobody@school.test", "secret-1"); !errors.Is(err, goSession.ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}

	if err := p.Disable(ctx, id); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if _, err := p.SignIn(ctx, "alice@school.test", "secret-1"); !errors.Is(err, goSession.ErrInvalidCredentials) {
		t.Fatalf("disabled account: expected ErrInvalidCredentials, got %v", err)
	}

	if err := p.Enable(ctx, id); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if _, err := p.SignIn(ctx, "alice@school.test", "secret-1"); err != nil {
		t.Fatalf("re-enabled sign in: %v", err)
	}
}

func TestOnAuthStateChangeSynchronousInitialDelivery(t *testing.T) {
	p := newTestProvider(t)
	register(t, p, "alice@school.test", "secret-1")

	var mu sync.Mutex
	var got []*goSession.Identity
	record := func(ident *goSession.Identity) {
		mu.Lock()
		got = append(got, ident)
		mu.Unlock()
	}

	unsub := p.OnAuthStateChange(record)
	mu.Lock()
	if len(got) != 1 || got[0] != nil {
		mu.Unlock()
		t.Fatalf("expected immediate nil delivery, got %+v", got)
	}
	mu.Unlock()

	if _, err := p.SignIn(context.Background(), "alice@school.test", "secret-1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if err := p.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(got))
	}
	if got[1] == nil || got[1].Email != "alice@school.test" {
		t.Fatalf("expected signed-in delivery, got %+v", got[1])
	}
	if got[2] != nil {
		t.Fatalf("expected nil delivery after sign out, got %+v", got[2])
	}

	unsub()
	unsub()
	if p.ListenerCount() != 0 {
		t.Fatalf("expected zero listeners after unsubscribe, got %d", p.ListenerCount())
	}
}

func TestListenerReceivesIdentityCopy(t *testing.T) {
	p := newTestProvider(t)
	register(t, p, "alice@school.test", "secret-1")

	var delivered *goSession.Identity
	unsub := p.OnAuthStateChange(func(ident *goSession.Identity) {
		if ident != nil {
			delivered = ident
		}
	})
	defer unsub()

	if _, err := p.SignIn(context.Background(), "alice@school.test", "secret-1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	delivered.DisplayName = "Mutated"

	again, err := p.SignIn(context.Background(), "alice@school.test", "secret-1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if again.DisplayName != "Alice Teacher" {
		t.Fatal("expected listener mutation not to leak into provider state")
	}
}

func TestSignOutWithoutSessionIsNoOp(t *testing.T) {
	p := newTestProvider(t)

	notified := false
	unsub := p.OnAuthStateChange(func(*goSession.Identity) { notified = true })
	notified = false
	defer unsub()

	if err := p.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if notified {
		t.Fatal("expected no notification for sign-out without a session")
	}
}

func TestUpdateDisplayMetadataDoesNotNotify(t *testing.T) {
	p := newTestProvider(t)
	id := register(t, p, "alice@school.test", "secret-1")

	if _, err := p.SignIn(context.Background(), "alice@school.test", "secret-1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	deliveries := 0
	unsub := p.OnAuthStateChange(func(*goSession.Identity) { deliveries++ })
	defer unsub()

	err := p.UpdateDisplayMetadata(context.Background(), id, goSession.DisplayMetadata{
		Name:     "Alice Renamed",
		PhotoURL: "https://example.test/b.png",
	})
	if err != nil {
		t.Fatalf("update metadata: %v", err)
	}
	if deliveries != 1 {
		t.Fatalf("expected only the initial delivery, got %d", deliveries)
	}

	ident, err := p.SignIn(context.Background(), "alice@school.test", "secret-1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if ident.DisplayName != "Alice Renamed" || ident.PhotoURL != "https://example.test/b.png" {
		t.Fatalf("expected updated metadata, got %+v", ident)
	}
}

func TestUpdateDisplayMetadataUnknownIdentity(t *testing.T) {
	p := newTestProvider(t)

	err := p.UpdateDisplayMetadata(context.Background(), "missing", goSession.DisplayMetadata{Name: "X"})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

/*
====================================
IDENTITY TOKENS
====================================
*/

func TestIdentityTokenRoundTrip(t *testing.T) {
	p := newTestProvider(t)
	id := register(t, p, "alice@school.test", "secret-1")

	if _, err := p.IdentityToken(context.Background()); !errors.Is(err, ErrNoActiveIdentity) {
		t.Fatalf("expected ErrNoActiveIdentity before sign in, got %v", err)
	}

	if _, err := p.SignIn(context.Background(), "alice@school.test", "secret-1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	token, err := p.IdentityToken(context.Background())
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	ident, err := p.VerifyIdentityToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if ident.ID != id || ident.Email != "alice@school.test" || ident.DisplayName != "Alice Teacher" {
		t.Fatalf("unexpected identity from token %+v", ident)
	}
}

func TestVerifyIdentityTokenRejectsForeignToken(t *testing.T) {
	p := newTestProvider(t)
	register(t, p, "alice@school.test", "secret-1")
	if _, err := p.SignIn(context.Background(), "alice@school.test", "secret-1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	token, err := p.IdentityToken(context.Background())
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	otherKey, err := New(Config{SigningKey: []byte("ffffffffffffffffffffffffffffffff")})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := otherKey.VerifyIdentityToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong key, got %v", err)
	}

	otherIssuer, err := New(Config{SigningKey: testSigningKey, Issuer: "someone-else"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := otherIssuer.VerifyIdentityToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong issuer, got %v", err)
	}

	if _, err := p.VerifyIdentityToken("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}

func TestIdentityTokenExpires(t *testing.T) {
	p, err := New(Config{SigningKey: testSigningKey, TokenTTL: 1 * time.Millisecond})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	register(t, p, "alice@school.test", "secret-1")
	if _, err := p.SignIn(context.Background(), "alice@school.test", "secret-1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	token, err := p.IdentityToken(context.Background())
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := p.VerifyIdentityToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid after expiry, got %v", err)
	}
}
