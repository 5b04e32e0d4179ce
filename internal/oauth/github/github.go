// Package github implements the GitHub OAuth 2.0 adapter. GitHub deviates
// from the base in two ways: client credentials must travel in the POST form
// (its token endpoint rejects basic auth from OAuth apps), and tokens never
// expire nor refresh. Users may also hide their email, in which case a
// second call to /user/emails is attempted and the profile may still come
// back without one.
package github

import (
	"context"
	"strconv"

	"github.com/beanfolio/roastery/internal/oauth"
)

const Name = "github"

const (
	authEndpoint    = "https://github.com/login/oauth/authorize"
	tokenEndpoint   = "https://github.com/login/oauth/access_token"
	profileEndpoint = "https://api.github.com/user"
)

type provider struct {
	*oauth.Base
	emailEndpoint string
}

// New builds the GitHub adapter.
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
	return &provider{Base: base, emailEndpoint: cfg.ProfileEndpoint + "/emails"}, nil
}

func (p *provider) AuthorizeURL(state, pkceChallenge string) string {
	return p.BuildAuthorizeURL(state, pkceChallenge, nil)
}

func (p *provider) Exchange(ctx context.Context, code, pkceVerifier string) (*oauth.TokenResponse, error) {
	return p.ExchangeCode(ctx, code, pkceVerifier)
}

// Refresh is unsupported: GitHub OAuth app tokens are long-lived and have no
// refresh grant. Callers fall back to a fresh authorization flow.
func (p *provider) Refresh(ctx context.Context, refreshToken string) (*oauth.TokenResponse, error) {
	return nil, oauth.ErrRefreshUnsupported
}

func (p *provider) FetchProfile(ctx context.Context, accessToken string) (*oauth.Profile, error) {
	var info struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
		HTMLURL   string `json:"html_url"`
		Bio       string `json:"bio"`
		Location  string `json:"location"`
		Company   string `json:"company"`
	}
	if err := p.GetJSON(ctx, p.ProfileEndpoint(), accessToken, &info); err != nil {
		return nil, err
	}

	email := info.Email
	verified := email != ""
	if email == "" {
		// Private emails need the /user/emails endpoint. Failure here is not
		// fatal: the profile simply has no email and reconciliation handles
		// that case.
		if e, v, err := p.primaryEmail(ctx, accessToken); err == nil {
			email, verified = e, v
		}
	}

	displayName := info.Name
	if displayName == "" {
		displayName = info.Login
	}

	meta := map[string]any{"login": info.Login}
	if info.HTMLURL != "" {
		meta["html_url"] = info.HTMLURL
	}
	if info.Location != "" {
		meta["location"] = info.Location
	}
	if info.Company != "" {
		meta["company"] = info.Company
	}

	return &oauth.Profile{
		ProviderID:    strconv.FormatInt(info.ID, 10),
		Email:         email,
		EmailVerified: verified,
		DisplayName:   displayName,
		PictureURL:    info.AvatarURL,
		Metadata:      meta,
	}, nil
}

// primaryEmail returns the primary verified email, falling back to any
// verified one.
func (p *provider) primaryEmail(ctx context.Context, accessToken string) (string, bool, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := p.GetJSON(ctx, p.emailEndpoint, accessToken, &emails); err != nil {
		return "", false, err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, true, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, true, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, false, nil
	}
	return "", false, nil
}
