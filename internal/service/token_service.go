package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/metrics"
	"github.com/dtroode/authcore/internal/model"
	"github.com/dtroode/authcore/internal/token"
)

// SessionConfig holds the token lifetimes. It is fixed at construction.
type SessionConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// DefaultSessionConfig is 60 minutes for access and 7 days for refresh tokens.
var DefaultSessionConfig = SessionConfig{
	AccessTTL:  60 * time.Minute,
	RefreshTTL: 7 * 24 * time.Hour,
}

// TokenService issues, rotates and revokes token pairs. It composes the
// token codec with the refresh token ledger.
type TokenService struct {
	codec   model.TokenCodec
	store   model.RefreshTokenStore
	config  SessionConfig
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewTokenService(
	codec model.TokenCodec,
	store model.RefreshTokenStore,
	config SessionConfig,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *TokenService {
	if config.AccessTTL <= 0 {
		config.AccessTTL = DefaultSessionConfig.AccessTTL
	}
	if config.RefreshTTL <= 0 {
		config.RefreshTTL = DefaultSessionConfig.RefreshTTL
	}
	return &TokenService{codec: codec, store: store, config: config, metrics: metrics, logger: logger}
}

// Issue mints a new pair for userID and records the refresh token in the
// ledger with the expiry of its claim.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID) (model.TokenPair, error) {
	access, _, err := s.codec.Mint(userID.String(), model.TokenTypeAccess, s.config.AccessTTL)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, claims, err := s.codec.Mint(userID.String(), model.TokenTypeRefresh, s.config.RefreshTTL)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	_, err = s.store.Record(ctx, model.RefreshToken{
		TokenHash: token.Hash(refresh),
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt,
	})
	if err != nil {
		s.logger.Error("Token service: failed to record refresh token",
			"user_id", userID,
			"error", err.Error())
		return model.TokenPair{}, unavailable("record refresh token", err)
	}

	return newPair(access, refresh), nil
}

// Refresh rotates a refresh token. The presented token is revoked and a new
// one recorded in one transaction, so a replayed token always fails.
func (s *TokenService) Refresh(ctx context.Context, presented string) (model.TokenPair, error) {
	claims, err := s.codec.Verify(presented, model.TokenTypeRefresh)
	if err != nil {
		s.metrics.Refresh(metrics.OutcomeInvalid)
		return model.TokenPair{}, model.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		s.metrics.Refresh(metrics.OutcomeInvalid)
		return model.TokenPair{}, model.ErrInvalidToken
	}

	refresh, refreshClaims, err := s.codec.Mint(claims.Subject, model.TokenTypeRefresh, s.config.RefreshTTL)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	_, err = s.store.Rotate(ctx, token.Hash(presented), model.RefreshToken{
		TokenHash: token.Hash(refresh),
		UserID:    userID,
		ExpiresAt: refreshClaims.ExpiresAt,
	})
	if errors.Is(err, model.ErrTokenRevoked) {
		s.logger.Info("Token service: rejected revoked or unknown refresh token",
			"user_id", userID)
		s.metrics.Refresh(metrics.OutcomeRevoked)
		return model.TokenPair{}, model.ErrTokenRevoked
	}
	if err != nil {
		s.logger.Error("Token service: failed to rotate refresh token",
			"user_id", userID,
			"error", err.Error())
		s.metrics.Refresh(metrics.OutcomeUnavailable)
		return model.TokenPair{}, unavailable("rotate refresh token", err)
	}

	access, _, err := s.codec.Mint(claims.Subject, model.TokenTypeAccess, s.config.AccessTTL)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	s.metrics.Refresh(metrics.OutcomeSuccess)
	s.logger.Debug("Token service: refresh token rotated", "user_id", userID)

	return newPair(access, refresh), nil
}

// Logout revokes the presented refresh token if the ledger knows it. Unknown
// and already revoked tokens are acknowledged the same way.
func (s *TokenService) Logout(ctx context.Context, presented string) error {
	rt, err := s.store.FindByHash(ctx, token.Hash(presented))
	if errors.Is(err, model.ErrNotFound) {
		s.metrics.Logout()
		return nil
	}
	if err != nil {
		return unavailable("find refresh token", err)
	}

	if !rt.Revoked {
		if err := s.store.Revoke(ctx, rt); err != nil {
			return unavailable("revoke refresh token", err)
		}
	}

	s.metrics.Logout()
	s.logger.Debug("Token service: refresh token revoked", "user_id", rt.UserID)
	return nil
}

// LogoutAll revokes every live refresh token of the user.
func (s *TokenService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.RevokeAllByUser(ctx, userID); err != nil {
		return unavailable("revoke user refresh tokens", err)
	}
	s.logger.Info("Token service: all refresh tokens revoked", "user_id", userID)
	return nil
}

func newPair(access, refresh string) model.TokenPair {
	return model.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    model.BearerTokenType,
	}
}

// unavailable marks err as a backend failure unless it already is one.
func unavailable(op string, err error) error {
	if errors.Is(err, model.ErrUnavailable) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return fmt.Errorf("%w: failed to %s: %v", model.ErrUnavailable, op, err)
}
