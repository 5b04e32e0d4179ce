// Package middlewares holds the cross-cutting HTTP concerns: request ids,
// structured request logging, panic recovery and session authentication.
package middlewares

import (
	"context"
	"net/http"
)

// Middleware is a standard http.Handler decorator.
type Middleware func(http.Handler) http.Handler

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyUserID
	ctxKeyUserRole
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, rid)
}

// GetRequestID returns the request id injected by WithRequestID, or "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

func setUser(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyUserID, userID)
	return context.WithValue(ctx, ctxKeyUserRole, role)
}

// GetUserID returns the authenticated user id, or "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserID).(string)
	return v
}

// GetUserRole returns the authenticated user's role, or "".
func GetUserRole(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserRole).(string)
	return v
}
