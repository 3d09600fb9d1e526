package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/dtroode/authcore/internal/model"
)

var _ model.TokenCodec = (*JWT)(nil)

var errEmptySecret = errors.New("jwt secret must not be empty")

// Claims is the fixed claim set of every token: registered claims plus the
// token type discriminator.
type Claims struct {
	jwt.RegisteredClaims
	Type model.TokenType `json:"type"`
}

// JWT is an HS256 token codec.
type JWT struct {
	secretKey []byte
	now       func() time.Time
}

// Option configures a JWT codec.
type Option func(*JWT)

// WithClock overrides the time source used for minting and validation.
func WithClock(now func() time.Time) Option {
	return func(j *JWT) {
		j.now = now
	}
}

// NewJWT creates a codec signing with secretKey.
func NewJWT(secretKey string, opts ...Option) (*JWT, error) {
	if secretKey == "" {
		return nil, errEmptySecret
	}
	j := &JWT{secretKey: []byte(secretKey), now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Mint signs a token of type typ for subject, valid for ttl.
func (j *JWT) Mint(subject string, typ model.TokenType, ttl time.Duration) (string, model.Claims, error) {
	if subject == "" {
		return "", model.Claims{}, fmt.Errorf("%w: empty subject", model.ErrInvalidInput)
	}
	if ttl <= 0 {
		return "", model.Claims{}, fmt.Errorf("%w: non-positive ttl", model.ErrInvalidInput)
	}

	now := j.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        ulid.Make().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type: typ,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", model.Claims{}, fmt.Errorf("failed to sign %s token: %w", typ, err)
	}

	return signed, toModel(claims), nil
}

// Verify checks signature, algorithm, expiry and type. Every failure is
// reported as model.ErrInvalidToken.
func (j *JWT) Verify(tokenString string, expected model.TokenType) (model.Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil || !token.Valid {
		return model.Claims{}, model.ErrInvalidToken
	}
	if claims.Type != expected || claims.Subject == "" {
		return model.Claims{}, model.ErrInvalidToken
	}

	return toModel(*claims), nil
}

// Hash returns the ledger key of a raw token: hex-encoded SHA-256.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// toModel converts claims to their model form. Times are normalized to UTC so
// minted and verified claims of one token compare equal.
func toModel(c Claims) model.Claims {
	out := model.Claims{
		Subject: c.Subject,
		Type:    c.Type,
		ID:      c.ID,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time.UTC()
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return out
}
