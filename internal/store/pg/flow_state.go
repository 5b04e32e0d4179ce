package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beanfolio/roastery/internal/domain/repository"
)

type flowStateStore struct {
	pool *pgxpool.Pool
}

func (s *flowStateStore) Create(ctx context.Context, fs *repository.FlowState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO oauth_flow_state
			(state, provider, code_verifier, code_challenge, link_user_id,
			 redirect_url, remote_addr, user_agent, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		fs.State, fs.Provider, fs.CodeVerifier, fs.CodeChallenge,
		nullIfEmpty(fs.LinkToUserID), nullIfEmpty(fs.RedirectURL),
		nullIfEmpty(fs.RemoteAddr), nullIfEmpty(fs.UserAgent),
		fs.ExpiresAt, fs.CreatedAt,
	)
	return mapErr(err)
}

// Consume is a single DELETE .. RETURNING: the database guarantees at most
// one concurrent caller gets the row back. The expiry predicate lives in the
// same statement, so an expired row is unreachable even before a sweep.
func (s *flowStateStore) Consume(ctx context.Context, state string) (*repository.FlowState, error) {
	var fs repository.FlowState
	var linkUserID, redirectURL, remoteAddr, userAgent *string
	err := s.pool.QueryRow(ctx, `
		DELETE FROM oauth_flow_state
		WHERE state = $1 AND expires_at > NOW()
		RETURNING state, provider, code_verifier, code_challenge, link_user_id,
		          redirect_url, remote_addr, user_agent, expires_at, created_at`,
		state,
	).Scan(
		&fs.State, &fs.Provider, &fs.CodeVerifier, &fs.CodeChallenge, &linkUserID,
		&redirectURL, &remoteAddr, &userAgent, &fs.ExpiresAt, &fs.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	fs.LinkToUserID = deref(linkUserID)
	fs.RedirectURL = deref(redirectURL)
	fs.RemoteAddr = deref(remoteAddr)
	fs.UserAgent = deref(userAgent)
	return &fs, nil
}

func (s *flowStateStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM oauth_flow_state WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
