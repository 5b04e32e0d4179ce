// Package audit records security-relevant events (sign-ins, links, unlinks,
// denials) without ever blocking the request that caused them.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/beanfolio/roastery/internal/domain/repository"
	"github.com/beanfolio/roastery/internal/observability/logger"
)

// Recorder appends entries asynchronously. A nil Recorder is a valid no-op,
// so tests and dev setups can skip wiring a sink.
type Recorder struct {
	sink    repository.AuditLogger
	timeout time.Duration
}

// New wraps a sink. Appends get their own context with timeout; the request
// context may be gone by the time the write lands.
func New(sink repository.AuditLogger) *Recorder {
	return &Recorder{sink: sink, timeout: 5 * time.Second}
}

// Record fires the append in the background. Failures are logged, never
// returned.
func (r *Recorder) Record(ctx context.Context, event, userID, provider string, detail map[string]any) {
	if r == nil || r.sink == nil {
		return
	}
	entry := repository.AuditEntry{
		ID:        uuid.NewString(),
		Event:     event,
		UserID:    userID,
		Provider:  provider,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	log := logger.From(ctx)
	go func() {
		actx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.sink.Append(actx, entry); err != nil {
			log.Warn("audit append failed",
				logger.Component("audit"),
				logger.String("event", event),
				logger.Err(err),
			)
		}
	}()
}
