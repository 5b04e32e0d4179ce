// Package google implements the Google OIDC-flavored OAuth2 adapter.
// Google issues refresh tokens only when offline access is requested with
// forced consent, so both are injected at authorize time.
package google

import (
	"context"
	"net/url"

	"github.com/beanfolio/roastery/internal/oauth"
)

const Name = "google"

const (
	authEndpoint    = "https://accounts.google.com/o/oauth2/v2/auth"
	tokenEndpoint   = "https://oauth2.googleapis.com/token"
	profileEndpoint = "https://openidconnect.googleapis.com/v1/userinfo"
)

type provider struct {
	*oauth.Base
}

// New builds the Google adapter. Config errors surface here, at startup.
func New(cfg oauth.Config) (oauth.Provider, error) {
	if cfg.AuthEndpoint == "" {
		cfg.AuthEndpoint = authEndpoint
	}
	if cfg.TokenEndpoint == "" {
		cfg.TokenEndpoint = tokenEndpoint
	}
	if cfg.ProfileEndpoint == "" {
		cfg.ProfileEndpoint = profileEndpoint
	}
	base, err := oauth.NewBase(Name, cfg, oauth.AuthStyleInBody)
	if err != nil {
		return nil, err
	}
	return &provider{Base: base}, nil
}

func (p *provider) AuthorizeURL(state, pkceChallenge string) string {
	extra := url.Values{}
	extra.Set("access_type", "offline")
	extra.Set("include_granted_scopes", "true")
	extra.Set("prompt", "consent")
	return p.BuildAuthorizeURL(state, pkceChallenge, extra)
}

func (p *provider) Exchange(ctx context.Context, code, pkceVerifier string) (*oauth.TokenResponse, error) {
	return p.ExchangeCode(ctx, code, pkceVerifier)
}

func (p *provider) Refresh(ctx context.Context, refreshToken string) (*oauth.TokenResponse, error) {
	return p.RefreshGrant(ctx, refreshToken)
}

func (p *provider) FetchProfile(ctx context.Context, accessToken string) (*oauth.Profile, error) {
	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
		Locale        string `json:"locale"`
		Hd            string `json:"hd"`
	}
	if err := p.GetJSON(ctx, p.ProfileEndpoint(), accessToken, &info); err != nil {
		return nil, err
	}
	meta := map[string]any{}
	if info.Locale != "" {
		meta["locale"] = info.Locale
	}
	if info.Hd != "" {
		meta["hosted_domain"] = info.Hd
	}
	return &oauth.Profile{
		ProviderID:    info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		DisplayName:   info.Name,
		GivenName:     info.GivenName,
		FamilyName:    info.FamilyName,
		PictureURL:    info.Picture,
		Metadata:      meta,
	}, nil
}
