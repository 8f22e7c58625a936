package db

import (
	"context"
	"time"

	"github.com/bookvault/backend/internal/model"
	"github.com/jackc/pgx/v5"
)

func (db *Postgres) EnsureAuthSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			login TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			salt TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			password_changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			roles TEXT[] NOT NULL DEFAULT '{}',
			store_ids BIGINT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS revoked_tokens (
			jti TEXT PRIMARY KEY,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS revoked_tokens_expires_at_idx ON revoked_tokens(expires_at)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

const userColumns = `id, login, name, password_hash, salt, is_active, password_changed_at, roles, store_ids, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Login,
		&user.Name,
		&user.HashedPassword,
		&user.Salt,
		&user.IsActive,
		&user.PasswordChangedAt,
		&user.Roles,
		&user.StoreIDs,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *Postgres) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (login, name, password_hash, salt, is_active, password_changed_at, roles, store_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING ` + userColumns
	row := db.Pool.QueryRow(ctx, query,
		user.Login,
		user.Name,
		user.HashedPassword,
		user.Salt,
		user.IsActive,
		user.PasswordChangedAt,
		user.Roles,
		user.StoreIDs,
	)
	return scanUser(row)
}

func (db *Postgres) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE login = $1`
	return scanUser(db.Pool.QueryRow(ctx, query, login))
}

func (db *Postgres) GetUserByID(ctx context.Context, userID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(db.Pool.QueryRow(ctx, query, userID))
}

// UpdatePassword rotates the stored credential. The three columns move
// together: password_changed_at is what invalidates tokens issued before
// the rotation.
func (db *Postgres) UpdatePassword(ctx context.Context, userID int64, passwordHash, salt string, changedAt time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $2, salt = $3, password_changed_at = $4, updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, userID, passwordHash, salt, changedAt)
	return err
}

func (db *Postgres) HasAdminUser(ctx context.Context) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE 'admin' = ANY(roles))`,
	).Scan(&exists)
	return exists, err
}

func IsNoRows(err error) bool {
	return err == pgx.ErrNoRows
}
