package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rpggio/tranche/internal/domain/vesting"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type callerKey struct{}

// CallerResolver resolves the ledger account a bearer token acts as.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, token string) (vesting.Account, error)
}

// CallerFromContext returns the authenticated account from context, if present.
func CallerFromContext(ctx context.Context) (vesting.Account, bool) {
	caller, ok := ctx.Value(callerKey{}).(vesting.Account)
	return caller, ok
}

// WithCaller returns a context carrying caller.
func WithCaller(ctx context.Context, caller vesting.Account) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver CallerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			caller, err := resolver.ResolveCaller(r.Context(), token)
			if err != nil || caller.IsNull() {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}
