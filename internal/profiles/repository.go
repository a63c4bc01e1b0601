package profiles

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/pkg/database"
)

const profileColumns = `id, user_id, full_name, email, phone, avatar_url, created_at, updated_at`

// Repository handles profile and user_role persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a profiles repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.UserID, &p.FullName, &p.Email, &p.Phone, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if database.IsNoRows(err) {
		return nil, apperror.NotFound("profile")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByUserID returns the profile of a user.
func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
}

// Create provisions a profile for the user. An existing profile is returned unchanged.
func (r *Repository) Create(ctx context.Context, userID uuid.UUID, email, fullName string) (*models.Profile, error) {
	const q = `INSERT INTO profiles (user_id, full_name, email) VALUES ($1, NULLIF($2, ''), $3)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + profileColumns
	return scanProfile(r.pool.QueryRow(ctx, q, userID, fullName, email))
}

// Update changes full_name and/or phone. Email is never written here.
func (r *Repository) Update(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	const q = `UPDATE profiles SET full_name = COALESCE($2, full_name), phone = COALESCE($3, phone), updated_at = NOW()
		WHERE user_id = $1 RETURNING ` + profileColumns
	return scanProfile(r.pool.QueryRow(ctx, q, userID, upd.FullName, upd.Phone))
}

// SetAvatarURL stores the avatar URL of a user's profile.
func (r *Repository) SetAvatarURL(ctx context.Context, userID uuid.UUID, url string) (*models.Profile, error) {
	const q = `UPDATE profiles SET avatar_url = $2, updated_at = NOW() WHERE user_id = $1 RETURNING ` + profileColumns
	return scanProfile(r.pool.QueryRow(ctx, q, userID, url))
}

// EffectiveRole returns the user's first assigned role, or RoleNone when there is none.
func (r *Repository) EffectiveRole(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	var role string
	err := r.pool.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY created_at, id LIMIT 1`, userID).Scan(&role)
	if database.IsNoRows(err) {
		return models.RoleNone, nil
	}
	if err != nil {
		return models.RoleNone, err
	}
	return models.ParseRole(role), nil
}
