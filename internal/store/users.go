package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/models"
)

func CreateUser(ctx context.Context, db database.Querier, username, passwordHash string, role models.Role) (*models.User, error) {
	user := &models.User{}

	query := `
		INSERT INTO users (username, password_hash, role, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, username, password_hash, role, created_at`

	err := db.QueryRowContext(ctx, query, username, passwordHash, role).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUserByUsername(ctx context.Context, db database.Querier, username string) (*models.User, error) {
	user := &models.User{}

	query := `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE username = $1`

	err := db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

// SetUserRole is used by the admin bootstrap to promote an existing account.
func SetUserRole(ctx context.Context, db database.Querier, username string, role models.Role) error {
	res, err := db.ExecContext(ctx, `UPDATE users SET role = $2 WHERE username = $1`, username, role)
	if err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return database.ErrUserNotFound
	}
	return nil
}
