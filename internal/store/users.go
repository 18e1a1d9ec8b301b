package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/framely/internal/database"
	"github.com/safar/framely/internal/models"
)

const userColumns = `id, email, password_hash, full_name, phone_number, address, role, created_at`

func scanUser(row rowScanner, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.PhoneNumber,
		&user.Address,
		&user.Role,
		&user.CreatedAt,
	)
}

// CreateUser inserts a user with a fresh UUID. Email uniqueness is
// case-insensitive.
func (s *Store) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	created := &models.User{}

	query := `
		INSERT INTO users (id, email, password_hash, full_name, phone_number, address, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING ` + userColumns

	err := scanUser(s.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		strings.TrimSpace(user.Email),
		user.PasswordHash,
		user.FullName,
		user.PhoneNumber,
		user.Address,
		user.Role,
	), created)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return created, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, strings.TrimSpace(email))
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}

	if err := scanUser(s.db.QueryRowContext(ctx, query, arg), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectOneRow(result, database.ErrUserNotFound)
}
