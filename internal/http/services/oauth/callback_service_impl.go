package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beanfolio/roastery/internal/audit"
	"github.com/beanfolio/roastery/internal/domain/repository"
	"github.com/beanfolio/roastery/internal/jwt"
	"github.com/beanfolio/roastery/internal/metrics"
	"github.com/beanfolio/roastery/internal/oauth"
	"github.com/beanfolio/roastery/internal/observability/logger"
	"github.com/beanfolio/roastery/internal/security/vault"
)

// CallbackDeps contains dependencies for the callback service.
type CallbackDeps struct {
	Registry *oauth.Registry
	Flows    repository.FlowStateStore
	Identity IdentityService
	Tokens   repository.TokenRepository
	Users    repository.UserRepository
	Vault    *vault.Vault
	Issuer   *jwt.Issuer
	Audit    *audit.Recorder
}

type callbackService struct {
	registry *oauth.Registry
	flows    repository.FlowStateStore
	identity IdentityService
	tokens   repository.TokenRepository
	users    repository.UserRepository
	vault    *vault.Vault
	issuer   *jwt.Issuer
	audit    *audit.Recorder
}

// NewCallbackService creates a CallbackService.
func NewCallbackService(d CallbackDeps) CallbackService {
	return &callbackService{
		registry: d.Registry,
		flows:    d.Flows,
		identity: d.Identity,
		tokens:   d.Tokens,
		users:    d.Users,
		vault:    d.Vault,
		issuer:   d.Issuer,
		audit:    d.Audit,
	}
}

func (s *callbackService) Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("oauth.callback"))

	if req.State == "" {
		return nil, ErrCallbackMissingState
	}

	// Consume first, even on provider error: the state is burned either way,
	// and a replayed redirect must find nothing.
	fs, err := s.flows.Consume(ctx, req.State)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("state not found or already consumed", logger.Provider(req.Provider))
			metrics.RecordFlowError(req.Provider, "invalid_state")
			return nil, ErrCallbackInvalidState
		}
		log.Error("flow state consume failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrCallbackInvalidState, err)
	}

	if req.ErrorCode != "" {
		log.Info("provider reported error",
			logger.Provider(req.Provider),
			logger.String("error", req.ErrorCode),
		)
		metrics.RecordFlowError(req.Provider, "provider_denied")
		s.audit.Record(ctx, "oauth.denied", "", req.Provider, map[string]any{
			"error":       req.ErrorCode,
			"description": req.ErrorDescription,
		})
		return nil, fmt.Errorf("%w: %s", ErrCallbackProviderDenied, req.ErrorCode)
	}
	if req.Code == "" {
		metrics.RecordFlowError(req.Provider, "missing_code")
		return nil, ErrCallbackMissingCode
	}
	if !strings.EqualFold(fs.Provider, req.Provider) {
		log.Warn("provider mismatch",
			logger.String("path_provider", req.Provider),
			logger.String("state_provider", fs.Provider),
		)
		metrics.RecordFlowError(req.Provider, "provider_mismatch")
		return nil, ErrCallbackProviderMismatch
	}

	provider, err := s.registry.Create(fs.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCallbackExchangeFailed, err)
	}

	tokens, err := provider.Exchange(ctx, req.Code, fs.CodeVerifier)
	if err != nil {
		var xe *oauth.ExchangeError
		if errors.As(err, &xe) {
			log.Warn("code exchange rejected",
				logger.Provider(fs.Provider),
				logger.Status(xe.StatusCode),
				logger.String("provider_error", xe.Code),
			)
		} else {
			log.Error("code exchange failed", logger.Provider(fs.Provider), logger.Err(err))
		}
		metrics.RecordFlowError(fs.Provider, "exchange_failed")
		return nil, fmt.Errorf("%w: %v", ErrCallbackExchangeFailed, err)
	}

	profile, err := provider.FetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		log.Error("profile fetch failed", logger.Provider(fs.Provider), logger.Err(err))
		metrics.RecordFlowError(fs.Provider, "profile_failed")
		return nil, fmt.Errorf("%w: %v", ErrCallbackProfileFailed, err)
	}

	outcome, err := s.identity.Reconcile(ctx, ReconcileInput{
		Provider:     fs.Provider,
		Profile:      profile,
		LinkToUserID: fs.LinkToUserID,
		Scope:        tokens.Scope,
	})
	if err != nil {
		if errors.Is(err, ErrAccountAlreadyLinked) {
			metrics.RecordFlowError(fs.Provider, "already_linked")
		} else {
			metrics.RecordFlowError(fs.Provider, "reconcile_failed")
		}
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.saveTokens(ctx, outcome.AccountID, tokens, now); err != nil {
		// The sign-in itself succeeded; a credential that cannot be stored
		// only costs a future refresh.
		log.Error("token persist failed", logger.AccountID(outcome.AccountID), logger.Err(err))
	}

	if err := s.users.UpdateLastLogin(ctx, outcome.User.ID, now); err != nil {
		log.Warn("last login update failed", logger.UserID(outcome.User.ID), logger.Err(err))
	}

	session, exp, err := s.issuer.IssueSession(outcome.User.ID, outcome.User.Role)
	if err != nil {
		log.Error("session issuance failed", logger.UserID(outcome.User.ID), logger.Err(err))
		metrics.RecordFlowError(fs.Provider, "session_failed")
		return nil, fmt.Errorf("%w: %v", ErrCallbackSessionFailed, err)
	}

	event := "oauth.signin"
	switch {
	case outcome.NewUser:
		event = "oauth.signup"
	case outcome.NewLink:
		event = "oauth.link"
	}
	s.audit.Record(ctx, event, outcome.User.ID, fs.Provider, map[string]any{
		"account_id": outcome.AccountID,
		"remote":     fs.RemoteAddr,
	})
	metrics.RecordFlowCompleted(fs.Provider, event)

	log.Info("authorization flow completed",
		logger.Provider(fs.Provider),
		logger.UserID(outcome.User.ID),
		logger.String("outcome", event),
	)

	return &CallbackResult{
		SessionToken: session,
		ExpiresAt:    exp,
		UserID:       outcome.User.ID,
		NewUser:      outcome.NewUser,
		Linked:       outcome.NewLink && !outcome.NewUser,
		RedirectURL:  fs.RedirectURL,
	}, nil
}

// saveTokens encrypts and upserts the provider credential. A fresh grant
// resets the refresh failure count.
func (s *callbackService) saveTokens(ctx context.Context, accountID string, t *oauth.TokenResponse, now time.Time) error {
	accessCipher, err := s.vault.Encrypt(t.AccessToken)
	if err != nil {
		return err
	}
	var refreshCipher string
	if t.RefreshToken != "" {
		refreshCipher, err = s.vault.Encrypt(t.RefreshToken)
		if err != nil {
			return err
		}
	} else if prev, err := s.tokens.Get(ctx, accountID); err == nil {
		// Providers often omit the refresh token on re-consent; keep the one
		// we already hold.
		refreshCipher = prev.RefreshTokenCipher
	}
	return s.tokens.Upsert(ctx, &repository.StoredToken{
		AccountID:          accountID,
		AccessTokenCipher:  accessCipher,
		RefreshTokenCipher: refreshCipher,
		TokenType:          t.TokenType,
		Scope:              t.Scope,
		ExpiresAt:          t.ExpiresAt(now),
		LastRefreshedAt:    now,
		RefreshFailCount:   0,
	})
}
