package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/realtime"
)

// EventCloser closes open events that have already started.
type EventCloser interface {
	CloseElapsed(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// Sweeper periodically closes elapsed events.
type Sweeper struct {
	events   EventCloser
	changes  realtime.Publisher
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewSweeper creates a sweeper. changes may be nil.
func NewSweeper(events EventCloser, changes realtime.Publisher, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{events: events, changes: changes, interval: interval, now: time.Now, logger: logger}
}

// SweepOnce closes elapsed events and publishes a change for each.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ids, err := s.events.CloseElapsed(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if s.changes != nil {
		for _, id := range ids {
			if err := s.changes.Publish(ctx, models.Change{Kind: models.ChangeEventUpdated, EventID: id}); err != nil {
				s.logger.Warn("publish event change failed", zap.Error(err))
			}
		}
	}
	if len(ids) > 0 {
		s.logger.Info("closed elapsed events", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}

// Run sweeps once immediately, then on every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return
		case <-ticker.C:
		}
	}
}
