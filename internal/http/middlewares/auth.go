package middlewares

import (
	"net/http"

	"github.com/beanfolio/roastery/internal/http/helpers"
	"github.com/beanfolio/roastery/internal/jwt"
	"github.com/beanfolio/roastery/internal/observability/logger"
)

// WithSessionAuth requires a valid bearer session token and puts the user id
// and role into the context.
func WithSessionAuth(issuer *jwt.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := helpers.BearerToken(r)
			if token == "" {
				helpers.WriteError(w, helpers.ErrUnauthorized.WithDetail("bearer token required"))
				return
			}
			claims, err := issuer.ParseSession(token)
			if err != nil {
				logger.From(r.Context()).Warn("session rejected", logger.Err(err))
				helpers.WriteError(w, helpers.ErrUnauthorized.WithDetail("invalid session"))
				return
			}
			ctx := setUser(r.Context(), claims.UserID, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithOptionalSessionAuth parses a bearer token when present but lets
// anonymous requests through. Used on the start endpoint, where a session
// turns a sign-in into a link.
func WithOptionalSessionAuth(issuer *jwt.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := helpers.BearerToken(r); token != "" {
				if claims, err := issuer.ParseSession(token); err == nil {
					r = r.WithContext(setUser(r.Context(), claims.UserID, claims.Role))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
