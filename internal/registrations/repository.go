package registrations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/events"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/pkg/database"
)

const regColumns = `r.id, r.event_id, r.user_id, r.status, r.registered_at`

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.RegisteredAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Register creates an active registration for userID on eventID. The event row is locked so
// the seat check and the insert see the same count.
func (r *Repository) Register(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		status models.EventStatus
		total  int
	)
	err = tx.QueryRow(ctx, `SELECT status, total_seats FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&status, &total)
	if database.IsNoRows(err) {
		return nil, apperror.NotFound("event")
	}
	if err != nil {
		return nil, fmt.Errorf("lock event: %w", err)
	}

	const q = `INSERT INTO registrations AS r (event_id, user_id)
		SELECT e.id, $2 FROM events e
		WHERE e.id = $1 AND e.status = 'open'
			AND (SELECT COUNT(*) FROM registrations x WHERE x.event_id = e.id AND x.status = 'registered') < e.total_seats
		RETURNING ` + regColumns
	reg, err := scanRegistration(tx.QueryRow(ctx, q, eventID, userID))
	switch {
	case database.IsUniqueViolation(err):
		return nil, apperror.Conflict("already registered for this event")
	case database.IsNoRows(err):
		if status != models.EventOpen {
			return nil, apperror.NotEligible("event is " + string(status))
		}
		return nil, apperror.NotEligible("event is full")
	case err != nil:
		return nil, fmt.Errorf("insert registration: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return reg, nil
}

// Cancel marks the caller's active registration for eventID as cancelled.
func (r *Repository) Cancel(ctx context.Context, eventID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE registrations SET status = 'cancelled'
		WHERE event_id = $1 AND user_id = $2 AND status = 'registered'`, eventID, userID)
	if err != nil {
		return fmt.Errorf("cancel registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("registration")
	}
	return nil
}

// Active returns the caller's active registration for eventID, or nil when there is none.
func (r *Repository) Active(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	const q = `SELECT ` + regColumns + ` FROM registrations r
		WHERE r.event_id = $1 AND r.user_id = $2 AND r.status = 'registered'`
	reg, err := scanRegistration(r.pool.QueryRow(ctx, q, eventID, userID))
	if database.IsNoRows(err) {
		return nil, nil
	}
	return reg, err
}

// Mine returns the user's registrations that are not cancelled, with their event, soonest first.
func (r *Repository) Mine(ctx context.Context, userID uuid.UUID) ([]models.RegistrationWithEvent, error) {
	q := `SELECT ` + regColumns + `, ` + events.ViewColumns("e") + `
		FROM registrations r
		JOIN events_with_counts e ON e.id = r.event_id
		WHERE r.user_id = $1 AND r.status <> 'cancelled'
		ORDER BY e.event_date ASC, e.event_time ASC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.RegistrationWithEvent{}
	for rows.Next() {
		var item models.RegistrationWithEvent
		ev, err := events.ScanDetails(prefixScanner{row: rows, prefix: []any{
			&item.ID, &item.EventID, &item.UserID, &item.Status, &item.RegisteredAt,
		}})
		if err != nil {
			return nil, err
		}
		item.Event = *ev
		list = append(list, item)
	}
	return list, rows.Err()
}

// ByEvent returns the attendees of an event with their profiles, oldest registration first.
func (r *Repository) ByEvent(ctx context.Context, eventID uuid.UUID) ([]models.RegistrationWithProfile, error) {
	const q = `SELECT ` + regColumns + `,
			p.id, p.user_id, p.full_name, p.email, p.phone, p.avatar_url, p.created_at, p.updated_at
		FROM registrations r
		LEFT JOIN profiles p ON p.user_id = r.user_id
		WHERE r.event_id = $1 AND r.status <> 'cancelled'
		ORDER BY r.registered_at ASC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.RegistrationWithProfile{}
	for rows.Next() {
		var (
			item             models.RegistrationWithProfile
			pid, puser       *uuid.UUID
			email            *string
			fullName, phone  *string
			avatar           *string
			created, updated *time.Time
		)
		if err := rows.Scan(&item.ID, &item.EventID, &item.UserID, &item.Status, &item.RegisteredAt,
			&pid, &puser, &fullName, &email, &phone, &avatar, &created, &updated); err != nil {
			return nil, err
		}
		if pid != nil {
			item.Profile = &models.Profile{
				ID: *pid, UserID: *puser, FullName: fullName, Email: *email, Phone: phone, AvatarURL: avatar,
				CreatedAt: *created, UpdatedAt: *updated,
			}
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// CancelAllForEvent cancels every active registration of an event and returns the affected user IDs.
func (r *Repository) CancelAllForEvent(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `UPDATE registrations SET status = 'cancelled'
		WHERE event_id = $1 AND status = 'registered' RETURNING user_id`, eventID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// prefixScanner lets events.ScanDetails read the trailing view columns of a joined row.
type prefixScanner struct {
	row    rowScanner
	prefix []any
}

func (s prefixScanner) Scan(dest ...any) error {
	return s.row.Scan(append(s.prefix, dest...)...)
}
