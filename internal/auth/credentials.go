package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nizarll/darsi/internal/models"
	"github.com/Nizarll/darsi/internal/store"
)

// Credentials registers and authenticates users against a UserStore.
type Credentials struct {
	users  store.UserStore
	hasher *PasswordHasher
	// compared against when the username is unknown so both failure paths
	// pay for one bcrypt comparison
	dummyHash string
}

func NewCredentials(users store.UserStore, hasher *PasswordHasher) (*Credentials, error) {
	dummy, err := hasher.Hash(context.Background(), "darsi-unknown-user")
	if err != nil {
		return nil, err
	}
	return &Credentials{users: users, hasher: hasher, dummyHash: dummy}, nil
}

// CreateUser hashes password and stores the user. A taken username yields
// store.ErrDuplicateUsername.
func (c *Credentials) CreateUser(ctx context.Context, username, password string, role models.Role) (int64, error) {
	if !role.Valid() {
		return 0, fmt.Errorf("unknown role %q", role)
	}
	hash, err := c.hasher.Hash(ctx, password)
	if err != nil {
		return 0, err
	}
	return c.users.CreateUser(ctx, username, hash, role)
}

// FindByUsername returns nil, nil when no such user exists.
func (c *Credentials) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := c.users.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate returns the user only when the password matches. An unknown
// username and a wrong password both return nil, nil.
func (c *Credentials) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := c.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		c.hasher.Verify(ctx, password, c.dummyHash)
		return nil, nil
	}
	if !c.hasher.Verify(ctx, password, u.PasswordHash) {
		return nil, nil
	}
	return u, nil
}
