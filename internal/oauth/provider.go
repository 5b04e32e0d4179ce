// Package oauth implements the provider adapter layer: one implementation per
// identity provider behind a uniform contract, with the generic OAuth2 wire
// mechanics shared in a base client. Adapters only override provider quirks
// (extra authorize params, credential placement, token-exchange variants);
// nothing provider-specific leaks past this package.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider is the uniform capability set every identity provider satisfies.
type Provider interface {
	// Name returns the stable provider identifier ("google", "github", ...).
	Name() string

	// AuthorizeURL builds the provider's authorization endpoint URL carrying
	// the CSRF state and the PKCE challenge. Deterministic for fixed inputs.
	AuthorizeURL(state, pkceChallenge string) string

	// Exchange trades an authorization code (plus the PKCE verifier when the
	// flow used one) for tokens.
	Exchange(ctx context.Context, code, pkceVerifier string) (*TokenResponse, error)

	// FetchProfile loads the normalized user profile. Email may be empty:
	// not every provider returns one.
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)

	// Refresh trades a refresh token for fresh tokens. Providers without a
	// refresh grant return ErrRefreshUnsupported.
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// Config holds one provider's credentials and endpoints. Validated eagerly at
// adapter construction so misconfiguration surfaces at startup, not mid-flow.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Endpoints. Adapter constructors fill these with provider defaults;
	// tests may point them at a local server.
	AuthEndpoint    string
	TokenEndpoint   string
	ProfileEndpoint string

	// Timeout bounds every provider HTTP call. Defaults to 10s.
	Timeout time.Duration
}

func (c *Config) validate(provider string) error {
	if c.ClientID == "" {
		return fmt.Errorf("%s: client_id required", provider)
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("%s: client_secret required", provider)
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("%s: redirect_url required", provider)
	}
	if len(c.Scopes) == 0 {
		return fmt.Errorf("%s: at least one scope required", provider)
	}
	if c.AuthEndpoint == "" || c.TokenEndpoint == "" || c.ProfileEndpoint == "" {
		return fmt.Errorf("%s: endpoints incomplete", provider)
	}
	return nil
}

// TokenResponse is the canonical shape every provider's token payload is
// normalized into.
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        []string
	ExpiresIn    int64 // seconds; 0 when the provider issues non-expiring tokens
}

// ExpiresAt converts ExpiresIn to an absolute deadline, nil for non-expiring
// tokens.
func (t *TokenResponse) ExpiresAt(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	at := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	return &at
}

// Profile is the normalized user profile from any provider.
type Profile struct {
	ProviderID    string
	Email         string
	EmailVerified bool
	DisplayName   string
	GivenName     string
	FamilyName    string
	PictureURL    string
	Metadata      map[string]any
}

// ErrRefreshUnsupported marks providers whose tokens cannot be silently
// renewed; callers must force a fresh authorization flow instead.
var ErrRefreshUnsupported = errors.New("oauth: provider does not support token refresh")

// ExchangeError carries the provider's own diagnostics for a rejected code
// exchange or refresh. The raw error text is preserved; it is the only clue
// anyone gets when a provider console misconfiguration breaks the flow.
type ExchangeError struct {
	Provider    string
	Op          string // "exchange" | "refresh"
	StatusCode  int
	Code        string
	Description string
}

func (e *ExchangeError) Error() string {
	msg := fmt.Sprintf("oauth: %s %s failed", e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (http %d)", e.StatusCode)
	}
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Description != "" {
		msg += " - " + e.Description
	}
	return msg
}
