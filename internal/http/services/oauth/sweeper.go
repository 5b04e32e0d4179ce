package oauth

import (
	"context"
	"time"

	"github.com/beanfolio/roastery/internal/domain/repository"
	"github.com/beanfolio/roastery/internal/metrics"
	"github.com/beanfolio/roastery/internal/observability/logger"
)

// Sweeper periodically removes expired, never-consumed flow records.
// Consume already refuses expired rows; the sweep just keeps the table from
// accumulating abandoned sign-in attempts.
type Sweeper struct {
	flows    repository.FlowStateStore
	interval time.Duration
}

// NewSweeper builds a sweeper with the given interval (default 5m).
func NewSweeper(flows repository.FlowStateStore, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{flows: flows, interval: interval}
}

// Run sweeps until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	log := logger.L().With(logger.Component("oauth.sweeper"))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed, err := s.flows.Sweep(ctx, time.Now().UTC())
			if err != nil {
				log.Warn("sweep failed", logger.Err(err))
				continue
			}
			metrics.RecordSweep(removed)
			if removed > 0 {
				log.Info("expired flow records removed", logger.Count(removed))
			}
		}
	}
}
