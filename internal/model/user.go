package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User) (User, error)
	List(ctx context.Context, offset, limit int) ([]User, error)
	// Update rewrites email and password hash of an existing user.
	Update(ctx context.Context, user User) (User, error)
	// Delete removes the user together with its role assignments and ledger rows.
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserUpdate is a partial change to a user. Nil fields are left as they are;
// a non-nil empty Roles clears every role.
type UserUpdate struct {
	Email    *string
	Password *string
	Roles    []string
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) bool
}

// LoginLimiter throttles failed logins per identifier.
type LoginLimiter interface {
	Check(ctx context.Context, identifier string) error
	Fail(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}

// User represents a stored user with its credential hash.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
