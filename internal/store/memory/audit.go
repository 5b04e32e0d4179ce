package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/beanfolio/roastery/internal/domain/repository"
)

func (a *AuditLog) Append(_ context.Context, e repository.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}
