// Package jwt issues and verifies the session credential handed to the
// frontend after a completed sign-in.
package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("jwt: invalid token")
	ErrInvalidIssuer = errors.New("jwt: invalid issuer")
)

// Issuer signs session tokens with an HMAC secret.
type Issuer struct {
	secret []byte
	iss    string
	ttl    time.Duration
}

// SessionClaims is what the directory app reads back out of a session token.
type SessionClaims struct {
	UserID    string
	Role      string
	ExpiresAt time.Time
}

// NewIssuer validates the secret and returns an issuer. The secret must be at
// least 32 bytes so the HMAC keyspace is not the weak link.
func NewIssuer(secret []byte, iss string, ttl time.Duration) (*Issuer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt: session secret must be at least 32 bytes, got %d", len(secret))
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: secret, iss: iss, ttl: ttl}, nil
}

// IssueSession signs a token carrying the user id and role.
func (i *Issuer) IssueSession(userID, role string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.ttl)

	claims := jwtv5.MapClaims{
		"iss":  i.iss,
		"sub":  userID,
		"role": role,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  exp.Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseSession verifies signature, method, issuer and expiry and returns the
// session claims.
func (i *Issuer) ParseSession(token string) (*SessionClaims, error) {
	tok, err := jwtv5.Parse(token, func(*jwtv5.Token) (any, error) {
		return i.secret, nil
	}, jwtv5.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if iss, _ := claims["iss"].(string); iss != i.iss {
		return nil, ErrInvalidIssuer
	}

	out := &SessionClaims{}
	out.UserID, _ = claims["sub"].(string)
	out.Role, _ = claims["role"].(string)
	if expf, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(expf), 0)
	}
	if out.UserID == "" {
		return nil, ErrInvalidToken
	}
	return out, nil
}
