package oauth

import (
	"context"
	"errors"
	"time"
)

// CallbackService finishes an authorization flow: verifies the returning
// state, exchanges the code, reconciles the identity, stores credentials and
// issues the session token.
type CallbackService interface {
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error)
}

// CallbackRequest is the query surface of the provider redirect.
type CallbackRequest struct {
	Provider string
	State    string
	Code     string

	// ErrorCode/ErrorDescription are set when the provider redirected back
	// with an error instead of a code (user denied, bad scope, ...).
	ErrorCode        string
	ErrorDescription string
}

// CallbackResult is a completed sign-in or link.
type CallbackResult struct {
	SessionToken string
	ExpiresAt    time.Time
	UserID       string

	// NewUser reports that this flow created the account.
	NewUser bool
	// Linked reports that the flow attached a provider to an existing user
	// (either explicit link intent or email auto-link).
	Linked bool

	// RedirectURL is the frontend destination stored at flow start, if any.
	RedirectURL string
}

var (
	ErrCallbackMissingState     = errors.New("missing state")
	ErrCallbackMissingCode      = errors.New("missing code")
	ErrCallbackInvalidState     = errors.New("invalid or expired state")
	ErrCallbackProviderMismatch = errors.New("provider mismatch")
	ErrCallbackProviderDenied   = errors.New("provider returned an error")
	ErrCallbackExchangeFailed   = errors.New("code exchange failed")
	ErrCallbackProfileFailed    = errors.New("profile fetch failed")
	ErrCallbackSessionFailed    = errors.New("session issuance failed")
)
