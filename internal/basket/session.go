package basket

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const sessionContextKey contextKey = "basket.session"

// DefaultSessionHeader carries the shopper's basket session.
const DefaultSessionHeader = "X-Basket-Session"

// WithSession stores the basket session identifier on the context.
func WithSession(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionContextKey, strings.TrimSpace(id))
}

// SessionFrom extracts the basket session from the context if present.
func SessionFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(sessionContextKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// SlotKey returns the per-session storage key for the basket slot.
func SlotKey(ctx context.Context, base string) string {
	id, ok := SessionFrom(ctx)
	if !ok {
		return base
	}
	return base + ":" + id
}

// SessionMiddleware copies the session header onto the request context.
func SessionMiddleware(header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultSessionHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := strings.TrimSpace(r.Header.Get(header)); id != "" {
				r = r.WithContext(WithSession(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
