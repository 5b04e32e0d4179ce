package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// AuthStyle selects where client credentials travel on token requests.
type AuthStyle int

const (
	// AuthStyleBasic puts credentials in the Authorization header
	// (RFC 6749 §2.3.1). The base default.
	AuthStyleBasic AuthStyle = iota

	// AuthStyleInBody puts client_id/client_secret in the POST form for
	// providers that never implemented basic auth on the token endpoint.
	AuthStyleInBody
)

// Base owns the generic OAuth2 wire mechanics. Adapters embed it and
// override only what their provider deviates on.
type Base struct {
	name  string
	cfg   Config
	style AuthStyle
	http  *http.Client
}

// NewBase validates cfg and builds the shared client. A non-nil error is a
// startup-time configuration problem.
func NewBase(name string, cfg Config, style AuthStyle) (*Base, error) {
	if err := cfg.validate(name); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Base{
		name:  name,
		cfg:   cfg,
		style: style,
		http:  &http.Client{Timeout: timeout},
	}, nil
}

func (b *Base) Name() string { return b.name }

// ProfileEndpoint exposes the configured profile URL to the embedding
// adapter.
func (b *Base) ProfileEndpoint() string { return b.cfg.ProfileEndpoint }

// TokenEndpoint exposes the configured token URL to the embedding adapter.
func (b *Base) TokenEndpoint() string { return b.cfg.TokenEndpoint }

// ClientID exposes the configured client id to the embedding adapter.
func (b *Base) ClientID() string { return b.cfg.ClientID }

// ClientSecret exposes the configured client secret to the embedding adapter.
func (b *Base) ClientSecret() string { return b.cfg.ClientSecret }

// BuildAuthorizeURL assembles the authorization endpoint URL. extra carries
// provider-specific parameters injected by the adapter.
func (b *Base) BuildAuthorizeURL(state, pkceChallenge string, extra url.Values) string {
	u, _ := url.Parse(b.cfg.AuthEndpoint)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", b.cfg.ClientID)
	q.Set("redirect_uri", b.cfg.RedirectURL)
	q.Set("scope", strings.Join(b.cfg.Scopes, " "))
	q.Set("state", state)
	if pkceChallenge != "" {
		q.Set("code_challenge", pkceChallenge)
		q.Set("code_challenge_method", "S256")
	}
	for k, vs := range extra {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ExchangeCode runs the authorization_code grant.
func (b *Base) ExchangeCode(ctx context.Context, code, pkceVerifier string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", b.cfg.RedirectURL)
	if pkceVerifier != "" {
		form.Set("code_verifier", pkceVerifier)
	}
	return b.TokenRequest(ctx, "exchange", b.cfg.TokenEndpoint, form)
}

// RefreshGrant runs the refresh_token grant.
func (b *Base) RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return b.TokenRequest(ctx, "refresh", b.cfg.TokenEndpoint, form)
}

// TokenRequest POSTs a form-encoded grant request and normalizes the
// response. Providers name fields inconsistently (snake_case vs camelCase,
// numbers as strings); all of that tolerance lives here, once.
func (b *Base) TokenRequest(ctx context.Context, op, endpoint string, form url.Values) (*TokenResponse, error) {
	if b.style == AuthStyleInBody {
		form.Set("client_id", b.cfg.ClientID)
		form.Set("client_secret", b.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if b.style == AuthStyleBasic {
		req.SetBasicAuth(url.QueryEscape(b.cfg.ClientID), url.QueryEscape(b.cfg.ClientSecret))
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth: %s %s: %w", b.name, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("oauth: %s %s: read body: %w", b.name, op, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		if resp.StatusCode/100 != 2 {
			return nil, &ExchangeError{Provider: b.name, Op: op, StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("oauth: %s %s: decode response: %w", b.name, op, err)
	}

	// Some providers (GitHub) report errors with a 200 status.
	if errCode := str(raw, "error"); errCode != "" || resp.StatusCode/100 != 2 {
		return nil, &ExchangeError{
			Provider:    b.name,
			Op:          op,
			StatusCode:  resp.StatusCode,
			Code:        errCode,
			Description: str(raw, "error_description"),
		}
	}

	tr := normalizeToken(raw)
	if tr.AccessToken == "" {
		return nil, &ExchangeError{Provider: b.name, Op: op, StatusCode: resp.StatusCode, Description: "no access_token in response"}
	}
	return tr, nil
}

func normalizeToken(raw map[string]any) *TokenResponse {
	tr := &TokenResponse{
		AccessToken:  firstStr(raw, "access_token", "accessToken"),
		RefreshToken: firstStr(raw, "refresh_token", "refreshToken"),
		TokenType:    firstStr(raw, "token_type", "tokenType"),
		ExpiresIn:    firstInt(raw, "expires_in", "expiresIn"),
	}
	if tr.TokenType == "" {
		tr.TokenType = "Bearer"
	}
	switch v := firstVal(raw, "scope", "scopes").(type) {
	case string:
		tr.Scope = splitScopes(v)
	case []any:
		for _, s := range v {
			if sv, ok := s.(string); ok && sv != "" {
				tr.Scope = append(tr.Scope, sv)
			}
		}
	}
	return tr
}

// GetJSON performs an authenticated GET and decodes the JSON body. Shared by
// adapter profile fetches.
func (b *Base) GetJSON(ctx context.Context, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("oauth: %s profile: %w", b.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("oauth: %s profile: http %d", b.name, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("oauth: %s profile: decode: %w", b.name, err)
	}
	return nil
}

// Loose-typed JSON helpers.

func firstVal(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func firstStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(m, k); s != "" {
			return s
		}
	}
	return ""
}

func str(m map[string]any, k string) string {
	if s, ok := m[k].(string); ok {
		return s
	}
	return ""
}

func firstInt(m map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return int64(v)
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

func splitScopes(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' }) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
