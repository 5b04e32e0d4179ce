package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beanfolio/roastery/internal/domain/repository"
	"github.com/beanfolio/roastery/internal/metrics"
	"github.com/beanfolio/roastery/internal/oauth"
	"github.com/beanfolio/roastery/internal/observability/logger"
	"github.com/beanfolio/roastery/internal/security/vault"
)

const (
	// expirySkew treats tokens this close to expiry as already expired, so a
	// token we hand out survives the API call it was fetched for.
	expirySkew = 30 * time.Second

	// maxRefreshFailures stops hammering a provider that keeps refusing a
	// refresh token. Only a fresh authorization flow resets the count.
	maxRefreshFailures = 3
)

// TokenDeps contains dependencies for the token service.
type TokenDeps struct {
	Registry *oauth.Registry
	Accounts repository.LinkedAccountRepository
	Tokens   repository.TokenRepository
	Vault    *vault.Vault
}

type tokenService struct {
	registry *oauth.Registry
	accounts repository.LinkedAccountRepository
	tokens   repository.TokenRepository
	vault    *vault.Vault
}

// NewTokenService creates a TokenService.
func NewTokenService(d TokenDeps) TokenService {
	return &tokenService{
		registry: d.Registry,
		accounts: d.Accounts,
		tokens:   d.Tokens,
		vault:    d.Vault,
	}
}

func (s *tokenService) GetValidAccessToken(ctx context.Context, userID, provider string) (*AccessToken, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("oauth.token"))

	accounts, err := s.accounts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list linked accounts: %w", err)
	}
	var acct *repository.LinkedAccount
	for i := range accounts {
		if accounts[i].Provider == provider {
			acct = &accounts[i]
			break
		}
	}
	if acct == nil {
		return nil, ErrTokenNotLinked
	}

	stored, err := s.tokens.Get(ctx, acct.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenUnavailable
		}
		return nil, fmt.Errorf("load token: %w", err)
	}

	now := time.Now().UTC()
	if stored.ExpiresAt == nil || stored.ExpiresAt.After(now.Add(expirySkew)) {
		token, err := s.vault.Decrypt(stored.AccessTokenCipher)
		if err != nil {
			log.Error("access token decrypt failed", logger.AccountID(acct.ID), logger.Err(err))
			return nil, ErrTokenUnavailable
		}
		return &AccessToken{Token: token, TokenType: stored.TokenType, ExpiresAt: stored.ExpiresAt}, nil
	}

	return s.refresh(ctx, acct, stored, now)
}

func (s *tokenService) refresh(ctx context.Context, acct *repository.LinkedAccount, stored *repository.StoredToken, now time.Time) (*AccessToken, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("oauth.token"))

	if stored.RefreshTokenCipher == "" {
		return nil, ErrTokenUnavailable
	}
	if stored.RefreshFailCount >= maxRefreshFailures {
		log.Warn("refresh back-off active",
			logger.AccountID(acct.ID),
			logger.Provider(acct.Provider),
			logger.Int("failures", stored.RefreshFailCount),
		)
		return nil, ErrTokenUnavailable
	}

	provider, err := s.registry.Create(acct.Provider)
	if err != nil {
		return nil, ErrTokenUnavailable
	}

	refreshToken, err := s.vault.Decrypt(stored.RefreshTokenCipher)
	if err != nil {
		log.Error("refresh token decrypt failed", logger.AccountID(acct.ID), logger.Err(err))
		return nil, ErrTokenUnavailable
	}

	fresh, err := provider.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, oauth.ErrRefreshUnsupported) {
			return nil, ErrTokenUnavailable
		}
		log.Warn("token refresh failed",
			logger.AccountID(acct.ID),
			logger.Provider(acct.Provider),
			logger.Err(err),
		)
		metrics.RecordRefresh(acct.Provider, "failure")
		if ierr := s.tokens.IncrementRefreshFailure(ctx, acct.ID); ierr != nil {
			log.Warn("failure count update failed", logger.AccountID(acct.ID), logger.Err(ierr))
		}
		return nil, ErrTokenUnavailable
	}

	accessCipher, err := s.vault.Encrypt(fresh.AccessToken)
	if err != nil {
		return nil, ErrTokenUnavailable
	}
	refreshCipher := stored.RefreshTokenCipher
	if fresh.RefreshToken != "" {
		// Rotation: some providers issue a new refresh token on every grant.
		refreshCipher, err = s.vault.Encrypt(fresh.RefreshToken)
		if err != nil {
			return nil, ErrTokenUnavailable
		}
	}
	scope := fresh.Scope
	if len(scope) == 0 {
		scope = stored.Scope
	}

	expiresAt := fresh.ExpiresAt(now)
	if err := s.tokens.Upsert(ctx, &repository.StoredToken{
		AccountID:          acct.ID,
		AccessTokenCipher:  accessCipher,
		RefreshTokenCipher: refreshCipher,
		TokenType:          fresh.TokenType,
		Scope:              scope,
		ExpiresAt:          expiresAt,
		LastRefreshedAt:    now,
		RefreshFailCount:   0,
	}); err != nil {
		log.Error("refreshed token persist failed", logger.AccountID(acct.ID), logger.Err(err))
		// Still return the token; it is valid even if we could not store it.
	}

	metrics.RecordRefresh(acct.Provider, "success")
	log.Info("access token refreshed", logger.AccountID(acct.ID), logger.Provider(acct.Provider))
	return &AccessToken{Token: fresh.AccessToken, TokenType: fresh.TokenType, ExpiresAt: expiresAt}, nil
}
