package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/apperror"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/model"
)

// contextKey is unexported so only this package can read or write the
// identity value in a request context — no other package can collide with
// or shadow the key.
type contextKey int

const identityKey contextKey = iota

// ErrorWriter translates a domain error into an HTTP response. The
// middleware takes it as a dependency so response formatting stays in one
// place (internal/handler's writeError) instead of being duplicated here.
type ErrorWriter func(w http.ResponseWriter, err error)

// RequireAuth enforces authentication on protected routes.
//
// It expects an "Authorization: Bearer <token>" header carrying an
// access-kind token. On success the verified Identity is attached to the
// request context for downstream handlers; on any failure the chain stops
// with a 401. The check is a pure signature verification — no store access —
// so it is cheap enough for every request.
func RequireAuth(tokens *TokenService, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeErr(w, apperror.Unauthorized("missing or invalid Authorization header"))
				return
			}

			id, err := tokens.Verify(raw, KindAccess)
			if err != nil {
				writeErr(w, apperror.Unauthorized("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows the request through only when the authenticated role is
// one of the given roles. It must be mounted after RequireAuth: finding no
// identity in the context means the route is misconfigured, and the request
// is rejected with 401 rather than silently allowed.
func RequireRole(writeErr ErrorWriter, roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				writeErr(w, apperror.Unauthorized("authentication required"))
				return
			}

			if !slices.Contains(roles, id.Role) {
				writeErr(w, apperror.Forbidden("insufficient role"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext retrieves the authenticated identity attached by
// RequireAuth. The second return is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// ContextWithIdentity returns ctx with the identity attached. Exported for
// handler tests that exercise protected endpoints without running the full
// middleware chain.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// bearerToken extracts the token from an "Authorization: Bearer <t>" header.
// A missing header, wrong scheme, or empty token all return ok=false.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}
