package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/store"
)

// User is an identity that can act on the API and own classrooms.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRepository persists users in Postgres.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a repo.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. Usernames are unique.
func (r *UserRepository) Create(ctx context.Context, username string) (User, error) {
	if username == "" {
		return User{}, apperr.Invalid("username required")
	}
	u := User{ID: uuid.New(), Username: username}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username)
		VALUES ($1, $2)
		RETURNING created_at
	`, u.ID, u.Username)
	if err := row.Scan(&u.CreatedAt); err != nil {
		if store.IsUniqueViolation(err, store.UsersUsernameConstraint) {
			return User{}, apperr.Conflict("username %q taken", username)
		}
		return User{}, err
	}
	return u, nil
}

// GetByUsername returns a single user.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, username, created_at FROM users WHERE username = $1`, username)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.NotFound("user %q", username)
		}
		return User{}, err
	}
	return u, nil
}

// GetByID returns a single user by id.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, username, created_at FROM users WHERE id = $1`, id)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.NotFound("user %s", id)
		}
		return User{}, err
	}
	return u, nil
}

// Delete removes a user. Classrooms they owned keep existing with no teacher.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("user %s", id)
	}
	return nil
}
