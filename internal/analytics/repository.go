package analytics

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/pkg/database"
)

// Repository runs the aggregate queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Summary aggregates every event, or the events of one club when clubID is not nil.
func (r *Repository) Summary(ctx context.Context, clubID *uuid.UUID) (*Summary, error) {
	const q = `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'open'),
		COUNT(*) FILTER (WHERE status = 'closed'),
		COUNT(*) FILTER (WHERE status = 'cancelled'),
		COALESCE(SUM(filled_seats), 0)::BIGINT,
		COALESCE(SUM(total_seats), 0)::BIGINT
		FROM events_with_counts
		WHERE $1::uuid IS NULL OR club_id = $1`
	var s Summary
	err := r.pool.QueryRow(ctx, q, clubID).Scan(
		&s.TotalEvents, &s.OpenEvents, &s.ClosedEvents, &s.CancelledEvents,
		&s.TotalRegistrations, &s.TotalSeats,
	)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return &s, nil
}

// EventSummary counts the registrations of one event by status.
func (r *Repository) EventSummary(ctx context.Context, eventID uuid.UUID) (*EventSummary, error) {
	s := EventSummary{EventID: eventID}
	err := r.pool.QueryRow(ctx, `SELECT total_seats FROM events WHERE id = $1`, eventID).Scan(&s.TotalSeats)
	if database.IsNoRows(err) {
		return nil, apperror.NotFound("event")
	}
	if err != nil {
		return nil, fmt.Errorf("event summary: %w", err)
	}

	const q = `SELECT
		COUNT(*) FILTER (WHERE status = 'registered'),
		COUNT(*) FILTER (WHERE status = 'attended'),
		COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM registrations WHERE event_id = $1`
	if err := r.pool.QueryRow(ctx, q, eventID).Scan(&s.Registered, &s.Attended, &s.Cancelled); err != nil {
		return nil, fmt.Errorf("event summary counts: %w", err)
	}
	return &s, nil
}
