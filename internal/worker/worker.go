package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/internal/realtime"
	"github.com/eventflow/eventflow/pkg/queue"
)

// RegistrationCanceller cancels the active registrations of an event.
type RegistrationCanceller interface {
	CancelAllForEvent(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error)
}

// JobSource is the queue the processor drains.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// EventProcessor handles event lifecycle jobs: a cancelled event releases all its registrations.
type EventProcessor struct {
	regs    RegistrationCanceller
	queue   JobSource
	changes realtime.Publisher
	logger  *zap.Logger
	backoff time.Duration
}

// NewEventProcessor creates an event job processor. changes may be nil.
func NewEventProcessor(regs RegistrationCanceller, q JobSource, changes realtime.Publisher, logger *zap.Logger) *EventProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventProcessor{regs: regs, queue: q, changes: changes, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one job.
func (p *EventProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEventCancelled {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EventCancelledPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	users, err := p.regs.CancelAllForEvent(ctx, payload.EventID)
	if err != nil {
		return fmt.Errorf("cancel registrations: %w", err)
	}
	if p.changes != nil {
		for _, userID := range users {
			change := models.Change{Kind: models.ChangeRegistrationUpdated, EventID: payload.EventID, UserID: userID}
			if err := p.changes.Publish(ctx, change); err != nil {
				p.logger.Warn("publish registration change failed", zap.Error(err))
			}
		}
	}

	p.logger.Info("event cancellation processed",
		zap.String("event_id", payload.EventID.String()),
		zap.Int("registrations_cancelled", len(users)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EventProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("event worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, p.backoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			sleep(ctx, p.backoff)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
