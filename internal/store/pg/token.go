package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beanfolio/roastery/internal/domain/repository"
)

type tokenRepo struct {
	pool *pgxpool.Pool
}

func (r *tokenRepo) Get(ctx context.Context, accountID string) (*repository.StoredToken, error) {
	var t repository.StoredToken
	var refresh *string
	err := r.pool.QueryRow(ctx, `
		SELECT account_id, access_token_cipher, refresh_token_cipher, token_type,
		       scope, expires_at, last_refreshed_at, refresh_fail_count
		FROM oauth_token WHERE account_id = $1`, accountID,
	).Scan(
		&t.AccountID, &t.AccessTokenCipher, &refresh, &t.TokenType,
		&t.Scope, &t.ExpiresAt, &t.LastRefreshedAt, &t.RefreshFailCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.RefreshTokenCipher = deref(refresh)
	return &t, nil
}

func (r *tokenRepo) Upsert(ctx context.Context, t *repository.StoredToken) error {
	scope := t.Scope
	if scope == nil {
		scope = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO oauth_token
			(account_id, access_token_cipher, refresh_token_cipher, token_type,
			 scope, expires_at, last_refreshed_at, refresh_fail_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (account_id) DO UPDATE SET
			access_token_cipher  = EXCLUDED.access_token_cipher,
			refresh_token_cipher = EXCLUDED.refresh_token_cipher,
			token_type           = EXCLUDED.token_type,
			scope                = EXCLUDED.scope,
			expires_at           = EXCLUDED.expires_at,
			last_refreshed_at    = EXCLUDED.last_refreshed_at,
			refresh_fail_count   = EXCLUDED.refresh_fail_count`,
		t.AccountID, t.AccessTokenCipher, nullIfEmpty(t.RefreshTokenCipher), t.TokenType,
		scope, t.ExpiresAt, t.LastRefreshedAt, t.RefreshFailCount,
	)
	return err
}

func (r *tokenRepo) IncrementRefreshFailure(ctx context.Context, accountID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE oauth_token SET refresh_fail_count = refresh_fail_count + 1
		WHERE account_id = $1`, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *tokenRepo) Delete(ctx context.Context, accountID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM oauth_token WHERE account_id = $1`, accountID)
	return err
}
