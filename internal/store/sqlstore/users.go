package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Nizarll/darsi/internal/models"
	"github.com/Nizarll/darsi/internal/store"
)

func (s *SQLStore) CreateUser(ctx context.Context, username, passwordHash string, role models.Role) (int64, error) {
	id, err := s.insert(ctx, "INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)", username, passwordHash, string(role))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, store.ErrDuplicateUsername
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return id, nil
}

// GetUserByUsername returns store.ErrNotFound when no user has that name.
func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	var role string
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT id, username, password_hash, role FROM users WHERE username = ?"), username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	u.Role = models.Role(role)
	return &u, nil
}
