package oauth

import (
	"context"
	"errors"
	"time"
)

// TokenService hands out decrypted, currently-valid provider access tokens
// for server-side API calls, refreshing behind the scenes when needed.
type TokenService interface {
	// GetValidAccessToken returns a usable access token for the user's link
	// to provider. ErrTokenUnavailable is the expected "cannot help you right
	// now" answer (never linked, refresh impossible, provider refusing);
	// callers should degrade the feature, not the request.
	GetValidAccessToken(ctx context.Context, userID, provider string) (*AccessToken, error)
}

// AccessToken is a decrypted provider credential, valid at time of return.
type AccessToken struct {
	Token     string
	TokenType string
	ExpiresAt *time.Time // nil when the provider issues non-expiring tokens
}

var (
	ErrTokenNotLinked   = errors.New("provider not linked")
	ErrTokenUnavailable = errors.New("no valid access token available")
)
