package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/pkg/database"
)

const viewColumns = `id, title, description, club_id, event_date, event_time, venue, category, total_seats, image_emoji,
	status, created_by, created_at, updated_at, club_name, club_email, club_phone, club_instagram, filled_seats`

// Repository handles event persistence. Reads go through the events_with_counts view.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ScanDetails scans one events_with_counts row in viewColumns order.
func ScanDetails(row rowScanner) (*models.EventWithDetails, error) {
	var e models.EventWithDetails
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.ClubID, &e.EventDate, &e.EventTime, &e.Venue, &e.Category,
		&e.TotalSeats, &e.ImageEmoji, &e.Status, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
		&e.ClubName, &e.ClubEmail, &e.ClubPhone, &e.ClubInstagram, &e.FilledSeats)
	if database.IsNoRows(err) {
		return nil, apperror.NotFound("event")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ViewColumns returns the column list ScanDetails expects, qualified with alias when non-empty.
func ViewColumns(alias string) string {
	if alias == "" {
		return viewColumns
	}
	cols := strings.Split(viewColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

// List returns events ordered by date and time, optionally filtered by category.
func (r *Repository) List(ctx context.Context, filter models.EventFilter) ([]models.EventWithDetails, error) {
	q := `SELECT ` + viewColumns + ` FROM events_with_counts`
	var args []any
	if cat := filter.CategoryFilter(); cat != "" {
		args = append(args, cat)
		q += fmt.Sprintf(" WHERE category = $%d", len(args))
	}
	q += ` ORDER BY event_date ASC, event_time ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.EventWithDetails{}
	for rows.Next() {
		e, err := ScanDetails(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// GetByID returns one event projection.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.EventWithDetails, error) {
	return ScanDetails(r.pool.QueryRow(ctx, `SELECT `+viewColumns+` FROM events_with_counts WHERE id = $1`, id))
}

// Create inserts an event. Missing seats become 0.
func (r *Repository) Create(ctx context.Context, in models.EventInput, createdBy uuid.UUID) (*models.EventWithDetails, error) {
	status := models.EventOpen
	if in.Status != nil {
		status = *in.Status
	}
	const q = `INSERT INTO events (title, description, club_id, event_date, event_time, venue, category, total_seats, image_emoji, status, created_by)
		VALUES ($1, $2, $3, $4::date, $5::time, $6, $7, COALESCE($8::int, 0), $9, $10, $11)
		RETURNING id`
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, q, in.Title, in.Description, in.ClubID, in.EventDate, in.EventTime, in.Venue,
		in.Category, in.TotalSeats, in.ImageEmoji, status, createdBy).Scan(&id)
	if database.IsForeignKeyViolation(err) {
		return nil, apperror.ValidationFailed("club_id", "club does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Update applies the non-nil fields of in.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, in models.EventInput) (*models.EventWithDetails, error) {
	const q = `UPDATE events SET
		title = COALESCE($2, title),
		description = COALESCE($3, description),
		club_id = COALESCE($4, club_id),
		event_date = COALESCE($5::date, event_date),
		event_time = COALESCE($6::time, event_time),
		venue = COALESCE($7, venue),
		category = COALESCE($8, category),
		total_seats = COALESCE($9, total_seats),
		image_emoji = COALESCE($10, image_emoji),
		status = COALESCE($11, status),
		updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, in.Title, in.Description, in.ClubID, in.EventDate, in.EventTime, in.Venue,
		in.Category, in.TotalSeats, in.ImageEmoji, in.Status)
	if database.IsForeignKeyViolation(err) {
		return nil, apperror.ValidationFailed("club_id", "club does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NotFound("event")
	}
	return r.GetByID(ctx, id)
}

// Delete removes an event and, by cascade, its registrations.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("event")
	}
	return nil
}

// CloseElapsed marks open events whose start is before now as closed and returns their IDs.
func (r *Repository) CloseElapsed(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	const q = `UPDATE events SET status = 'closed', updated_at = NOW()
		WHERE status = 'open' AND (event_date + event_time) < $1::timestamp
		RETURNING id`
	rows, err := r.pool.Query(ctx, q, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
