// Package facebook implements the Facebook Graph OAuth 2.0 adapter.
// Facebook has no refresh_token grant; instead a short-lived token is traded
// for a long-lived one with the fb_exchange_token grant, which doubles as the
// Refresh implementation here. Profiles carry no email unless the user
// granted the email permission, making this the no-email provider the
// reconciliation layer must tolerate.
package facebook

import (
	"context"
	"net/url"

	"github.com/beanfolio/roastery/internal/oauth"
)

const Name = "facebook"

const (
	authEndpoint    = "https://www.facebook.com/v19.0/dialog/oauth"
	tokenEndpoint   = "https://graph.facebook.com/v19.0/oauth/access_token"
	profileEndpoint = "https://graph.facebook.com/v19.0/me"
)

type provider struct {
	*oauth.Base
}

// New builds the Facebook adapter.
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
	return p.BuildAuthorizeURL(state, pkceChallenge, nil)
}

func (p *provider) Exchange(ctx context.Context, code, pkceVerifier string) (*oauth.TokenResponse, error) {
	tr, err := p.ExchangeCode(ctx, code, pkceVerifier)
	if err != nil {
		return nil, err
	}
	// Facebook issues no refresh token; the access token itself is the
	// refresh material, traded via fb_exchange_token when it nears expiry.
	// Storing it in the refresh slot keeps the renewal path uniform.
	tr.RefreshToken = tr.AccessToken
	return tr, nil
}

// Refresh performs the long-lived token exchange: the stored token is sent
// as fb_exchange_token and Facebook answers with a fresh ~60-day token.
func (p *provider) Refresh(ctx context.Context, refreshToken string) (*oauth.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "fb_exchange_token")
	form.Set("fb_exchange_token", refreshToken)
	tr, err := p.TokenRequest(ctx, "refresh", p.TokenEndpoint(), form)
	if err != nil {
		return nil, err
	}
	tr.RefreshToken = tr.AccessToken
	return tr, nil
}

func (p *provider) FetchProfile(ctx context.Context, accessToken string) (*oauth.Profile, error) {
	endpoint := p.ProfileEndpoint() + "?fields=" + url.QueryEscape("id,name,first_name,last_name,email,picture.type(large)")
	var info struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Picture   struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := p.GetJSON(ctx, endpoint, accessToken, &info); err != nil {
		return nil, err
	}
	return &oauth.Profile{
		ProviderID: info.ID,
		// Often empty: the user may decline the email permission.
		Email:         info.Email,
		EmailVerified: info.Email != "",
		DisplayName:   info.Name,
		GivenName:     info.FirstName,
		FamilyName:    info.LastName,
		PictureURL:    info.Picture.Data.URL,
		Metadata:      map[string]any{},
	}, nil
}
