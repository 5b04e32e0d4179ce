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

// StartDeps contains dependencies for the start service.
type StartDeps struct {
	Registry *oauth.Registry
	Flows    repository.FlowStateStore
	StateTTL time.Duration
}

type startService struct {
	registry *oauth.Registry
	flows    repository.FlowStateStore
	stateTTL time.Duration
}

// NewStartService creates a StartService.
func NewStartService(d StartDeps) StartService {
	ttl := d.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &startService{
		registry: d.Registry,
		flows:    d.Flows,
		stateTTL: ttl,
	}
}

func (s *startService) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("oauth.start"))

	provider, err := s.registry.Create(req.Provider)
	if err != nil {
		if errors.Is(err, oauth.ErrUnknownProvider) {
			return nil, fmt.Errorf("%w: %s", ErrStartProviderUnknown, req.Provider)
		}
		log.Error("provider construction failed", logger.Provider(req.Provider), logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrStartFailed, err)
	}

	state, err := vault.RandomToken(32)
	if err != nil {
		log.Error("state generation failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrStartFailed, err)
	}
	pkce, err := vault.NewPKCEPair()
	if err != nil {
		log.Error("pkce generation failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrStartFailed, err)
	}

	now := time.Now().UTC()
	fs := &repository.FlowState{
		State:         state,
		Provider:      req.Provider,
		CodeVerifier:  pkce.Verifier,
		CodeChallenge: pkce.Challenge,
		LinkToUserID:  req.LinkToUserID,
		RedirectURL:   req.RedirectURI,
		RemoteAddr:    req.RemoteAddr,
		UserAgent:     req.UserAgent,
		ExpiresAt:     now.Add(s.stateTTL),
		CreatedAt:     now,
	}
	if err := s.flows.Create(ctx, fs); err != nil {
		log.Error("flow state persist failed", logger.Provider(req.Provider), logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrStartFailed, err)
	}

	metrics.RecordFlowStarted(req.Provider)
	log.Info("authorization flow started",
		logger.Provider(req.Provider),
		logger.Bool("linking", req.LinkToUserID != ""),
	)

	return &StartResult{RedirectURL: provider.AuthorizeURL(state, pkce.Challenge)}, nil
}
