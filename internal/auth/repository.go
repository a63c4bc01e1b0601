package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventflow/eventflow/internal/apperror"
	"github.com/eventflow/eventflow/internal/models"
	"github.com/eventflow/eventflow/pkg/database"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.Password, &u.CreatedAt)
	if database.IsNoRows(err) {
		return nil, apperror.NotFound("user")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, email, password_hash, created_at FROM users WHERE lower(email) = lower($1)`
	var u models.User
	err := r.pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.Email, &u.Password, &u.CreatedAt)
	if database.IsNoRows(err) {
		return nil, apperror.NotFound("user")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateWithProfile inserts a user, its profile and the default student role in one transaction.
func (r *Repository) CreateWithProfile(ctx context.Context, email, passwordHash, fullName string) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var u models.User
	err = tx.QueryRow(ctx, `INSERT INTO users (email, password_hash) VALUES ($1, $2)
		RETURNING id, email, password_hash, created_at`, email, passwordHash).
		Scan(&u.ID, &u.Email, &u.Password, &u.CreatedAt)
	if database.IsUniqueViolation(err) {
		return nil, apperror.Conflict("email already registered")
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO profiles (user_id, full_name, email) VALUES ($1, NULLIF($2, ''), $3)`,
		u.ID, fullName, u.Email); err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`,
		u.ID, string(models.RoleStudent)); err != nil {
		return nil, fmt.Errorf("insert role: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &u, nil
}
