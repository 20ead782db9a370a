package guard

import (
	"context"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

type sessionStateContextKey struct{}

// StateFromContext returns the session state stashed by [Middleware].
func StateFromContext(ctx context.Context) (goSession.SessionState, bool) {
	state, ok := ctx.Value(sessionStateContextKey{}).(goSession.SessionState)
	return state, ok
}

// Middleware adapts a guard decision to net/http. Each request is evaluated
// independently: loading sessions answer 503, blocked sessions are redirected
// with 302, and rendered requests continue with the state on the context.
func Middleware(store *goSession.Store, cfg goSession.GuardConfig, requireAuth bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				http.Error(w, "session unavailable", http.StatusServiceUnavailable)
				return
			}

			state := store.State()
			g := Guard{cfg: cfg, requireAuth: requireAuth}
			d := g.Resolve(state)

			switch d.Outcome {
			case OutcomePlaceholder:
				http.Error(w, "session loading", http.StatusServiceUnavailable)
			case OutcomeBlocked:
				http.Redirect(w, r, d.Target, http.StatusFound)
			default:
				ctx := context.WithValue(r.Context(), sessionStateContextKey{}, state)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

// RoleMiddleware is [Middleware] with an additional role requirement.
func RoleMiddleware(store *goSession.Store, cfg goSession.GuardConfig, require goSession.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				http.Error(w, "session unavailable", http.StatusServiceUnavailable)
				return
			}

			state := store.State()
			g := RoleGuard{cfg: cfg, require: require}
			d := g.Resolve(state)

			switch d.Outcome {
			case OutcomePlaceholder:
				http.Error(w, "session loading", http.StatusServiceUnavailable)
			case OutcomeBlocked:
				http.Redirect(w, r, d.Target, http.StatusFound)
			default:
				ctx := context.WithValue(r.Context(), sessionStateContextKey{}, state)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}
