package model

import "time"

// TokenType discriminates access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenCodec mints and verifies signed tokens.
type TokenCodec interface {
	Mint(subject string, typ TokenType, ttl time.Duration) (string, Claims, error)
	// Verify returns ErrInvalidToken for every kind of failure.
	Verify(token string, expected TokenType) (Claims, error)
}

// Claims are the verified contents of a token.
type Claims struct {
	Subject   string
	Type      TokenType
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

// BearerTokenType is the token_type reported with every token pair.
const BearerTokenType = "bearer"
