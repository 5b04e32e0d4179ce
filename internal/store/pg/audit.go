package pg

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beanfolio/roastery/internal/domain/repository"
)

type auditLog struct {
	pool *pgxpool.Pool
}

func (a *auditLog) Append(ctx context.Context, e repository.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	detail := e.Detail
	if detail == nil {
		detail = map[string]any{}
	}
	_, err := a.pool.Exec(ctx, `
		INSERT INTO audit_log (id, event, user_id, provider, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.Event, nullIfEmpty(e.UserID), nullIfEmpty(e.Provider), detail, e.CreatedAt,
	)
	return err
}
