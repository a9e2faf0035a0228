package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/apperr"
)

// TokenVerifier turns a bearer token into the caller's uid. Implemented by the JWKS
// verifier and the Firebase ID-token verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (string, error)
}

// NewAuthMiddleware authenticates Authorization: Bearer <token> requests.
//
// A request without an Authorization header continues anonymously and each callable
// decides whether that is allowed. A header that is present but malformed or carries a
// token that fails verification is rejected with UNAUTHENTICATED.
func NewAuthMiddleware(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" {
				next.ServeHTTP(w, r)
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(authz, prefix) {
				writeError(w, r, apperr.New(apperr.CodeUnauthenticated, "Malformed Authorization header."))
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
			if raw == "" {
				writeError(w, r, apperr.New(apperr.CodeUnauthenticated, "Missing bearer token."))
				return
			}

			sub, err := v.Verify(r.Context(), raw)
			if err != nil || sub == "" {
				writeError(w, r, apperr.New(apperr.CodeUnauthenticated, "Invalid or expired token."))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), sub)))
		})
	}
}

// NewDevAuthMiddleware is a local/dev-only auth shim.
//
// It takes the caller from X-Debug-Subject, falling back to defaultSubject. With neither,
// the request continues anonymously. Do NOT use this in production deployments.
func NewDevAuthMiddleware(defaultSubject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := strings.TrimSpace(r.Header.Get("X-Debug-Subject"))
			if sub == "" {
				sub = strings.TrimSpace(defaultSubject)
			}
			if sub == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), sub)))
		})
	}
}
