package model

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore is the ledger of issued refresh tokens, keyed by token hash.
type RefreshTokenStore interface {
	Record(ctx context.Context, token RefreshToken) (RefreshToken, error)
	FindByHash(ctx context.Context, tokenHash string) (RefreshToken, error)
	// Revoke flips the revoked flag. Revoking an already revoked row is a no-op.
	Revoke(ctx context.Context, token RefreshToken) error
	// Rotate revokes the live row identified by oldHash and records next in one
	// transaction. It returns ErrTokenRevoked when oldHash is not live.
	Rotate(ctx context.Context, oldHash string, next RefreshToken) (RefreshToken, error)
	RevokeAllByUser(ctx context.Context, userID uuid.UUID) error
	ListExpired(ctx context.Context, before time.Time, limit int) ([]RefreshToken, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// RefreshToken is a ledger row. The raw token is never stored.
type RefreshToken struct {
	ID        uuid.UUID `json:"id"`
	TokenHash string    `json:"token_hash"`
	UserID    uuid.UUID `json:"user_id"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Storage holds archived ledger rows once they leave the database.
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}
