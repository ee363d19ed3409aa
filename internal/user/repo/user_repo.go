package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/database"
)

// UserRepo provides data access for the users table using sqlx. Every call
// takes its own connection from the pool so acquisition failures surface as
// *database.ConnError.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id UUID PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	conn, err := database.Acquire(ctx, r.db)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.ExecContext(ctx, ddl)
	return err
}

// Create inserts u, assigning a new ID. Email is stored lower-cased.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) (*entity.User, error) {
	const q = `INSERT INTO users (id, email, name, password_hash) VALUES ($1, $2, $3, $4) RETURNING created_at`
	conn, err := database.Acquire(ctx, r.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	row := *u
	row.ID = uuid.NewString()
	row.Email = normalizeEmail(u.Email)
	if err := conn.QueryRowxContext(ctx, q, row.ID, row.Email, row.Name, row.PasswordHash).Scan(&row.CreatedAt); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByEmail returns the user with the given email or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	const q = `SELECT id, email, name, password_hash, created_at FROM users WHERE email=$1`
	return r.get(ctx, q, normalizeEmail(email))
}

// GetByID returns the user with the given id or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	const q = `SELECT id, email, name, password_hash, created_at FROM users WHERE id=$1`
	return r.get(ctx, q, id)
}

func (r *UserRepo) get(ctx context.Context, q string, arg any) (*entity.User, error) {
	conn, err := database.Acquire(ctx, r.db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var u entity.User
	if err := conn.GetContext(ctx, &u, q, arg); err != nil {
		return nil, err
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
