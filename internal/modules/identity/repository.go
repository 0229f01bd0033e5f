// Package identity provides user accounts and request authentication.
package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ghostportfolio/server/internal/domain"
)

// Repository handles user database operations
type Repository struct {
	usersDB *sql.DB
	log     zerolog.Logger
}

// NewRepository creates a new user repository
func NewRepository(usersDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		usersDB: usersDB,
		log:     log.With().Str("repo", "users").Logger(),
	}
}

// Create inserts a new user
func (r *Repository) Create(ctx context.Context, user domain.User) error {
	query := `INSERT INTO users (id, name, surname, email, password, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.usersDB.ExecContext(ctx, query,
		user.ID, user.Name, user.Surname, user.Email, user.PasswordHash, user.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	r.log.Info().Str("id", user.ID).Msg("User created")
	return nil
}

// GetByEmail returns the user with the given email, or nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx,
		`SELECT id, name, surname, email, password, created_at FROM users WHERE email = ?`, email)
}

// GetByID returns the user with the given id, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx,
		`SELECT id, name, surname, email, password, created_at FROM users WHERE id = ?`, id)
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		user          domain.User
		createdAtUnix int64
	)
	err := r.usersDB.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Name, &user.Surname, &user.Email, &user.PasswordHash, &createdAtUnix)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return &user, nil
}
