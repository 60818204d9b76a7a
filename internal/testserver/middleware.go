package testserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/rpggio/chemviz/internal/transport"
)

type (
	userKey      struct{}
	requestIDKey struct{}
)

type userResolver interface {
	ResolveUser(ctx context.Context, token string) (string, error)
}

func userFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(userKey{}).(string)
	return user, ok
}

func requestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

// tokenFromHeader extracts the token from an "Authorization: Token <t>" header.
func tokenFromHeader(header string) string {
	prefix := transport.AuthScheme + " "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// authMiddleware is the server half of the scheme transport.AuthTransport speaks.
func authMiddleware(resolver userResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromHeader(r.Header.Get("Authorization"))
			if token == "" {
				transport.WriteDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
				return
			}

			user, err := resolver.ResolveUser(r.Context(), token)
			if err != nil || user == "" {
				transport.WriteDetail(w, http.StatusUnauthorized, "Invalid token.")
				return
			}

			ctx := context.WithValue(r.Context(), userKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestIDMiddleware stores X-Request-ID in the request context and echoes
// it on the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(transport.RequestIDHeader)
		if id != "" {
			w.Header().Set(transport.RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r)
	})
}
