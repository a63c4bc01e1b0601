package clubs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/pkg/database"
)

const clubColumns = `id, name, description, logo_url, contact_email, contact_phone, instagram_handle, created_by, created_at, updated_at`

// Repository handles club persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a clubs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClub(row rowScanner) (*models.Club, error) {
	var c models.Club
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.LogoURL, &c.ContactEmail, &c.ContactPhone,
		&c.InstagramHandle, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if database.IsNoRows(err) {
		return nil, apperror.NotFound("club")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all clubs ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Club, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clubColumns+` FROM clubs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Club{}
	for rows.Next() {
		c, err := scanClub(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// GetByID returns a club by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Club, error) {
	return scanClub(r.pool.QueryRow(ctx, `SELECT `+clubColumns+` FROM clubs WHERE id = $1`, id))
}

// Create inserts a club and returns the stored row.
func (r *Repository) Create(ctx context.Context, in models.ClubInput, createdBy uuid.UUID) (*models.Club, error) {
	const q = `INSERT INTO clubs (name, description, logo_url, contact_email, contact_phone, instagram_handle, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + clubColumns
	return scanClub(r.pool.QueryRow(ctx, q, in.Name, in.Description, in.LogoURL, in.ContactEmail, in.ContactPhone,
		in.InstagramHandle, createdBy))
}

// Update applies the non-nil fields of in and returns the stored row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, in models.ClubInput) (*models.Club, error) {
	const q = `UPDATE clubs SET
		name = COALESCE($2, name),
		description = COALESCE($3, description),
		logo_url = COALESCE($4, logo_url),
		contact_email = COALESCE($5, contact_email),
		contact_phone = COALESCE($6, contact_phone),
		instagram_handle = COALESCE($7, instagram_handle),
		updated_at = NOW()
		WHERE id = $1
		RETURNING ` + clubColumns
	return scanClub(r.pool.QueryRow(ctx, q, id, in.Name, in.Description, in.LogoURL, in.ContactEmail, in.ContactPhone,
		in.InstagramHandle))
}
