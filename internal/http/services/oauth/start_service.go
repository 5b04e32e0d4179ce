// Package oauth holds the flow services behind the provider sign-in
// endpoints: start, callback, linked-account management and access-token
// retrieval. Controllers stay thin; everything stateful happens here.
package oauth

import (
	"context"
	"errors"
)

// StartService begins an authorization flow against one provider.
type StartService interface {
	// Start creates the one-time flow record and returns the provider URL to
	// redirect the browser to.
	Start(ctx context.Context, req StartRequest) (*StartResult, error)
}

// StartRequest carries what the start endpoint knows about the caller.
type StartRequest struct {
	Provider string

	// LinkToUserID is set when a signed-in user is attaching this provider to
	// their existing account rather than signing in.
	LinkToUserID string

	// RedirectURI optionally overrides where the frontend lands afterwards.
	RedirectURI string

	RemoteAddr string
	UserAgent  string
}

// StartResult is the provider authorization URL.
type StartResult struct {
	RedirectURL string
}

var (
	ErrStartProviderUnknown = errors.New("unknown provider")
	ErrStartFailed          = errors.New("failed to start authorization flow")
)
