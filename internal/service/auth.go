package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/metrics"
	"github.com/dtroode/authcore/internal/model"
)

// Auth drives the login and authentication transitions of a session.
type Auth struct {
	userStore    model.UserStore
	hasher       model.PasswordHasher
	tokenService *TokenService
	limiter      model.LoginLimiter
	codec        model.TokenCodec
	metrics      *metrics.Metrics
	logger       *logger.Logger

	// dummyHash is verified when the email is unknown so that both failure
	// paths cost one password verification.
	dummyHash string
}

func NewAuth(
	userStore model.UserStore,
	hasher model.PasswordHasher,
	codec model.TokenCodec,
	tokenService *TokenService,
	limiter model.LoginLimiter,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) (*Auth, error) {
	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Auth{
		userStore:    userStore,
		hasher:       hasher,
		tokenService: tokenService,
		limiter:      limiter,
		codec:        codec,
		metrics:      metrics,
		logger:       logger,
		dummyHash:    dummyHash,
	}, nil
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login verifies the credential and issues a new token pair. Unknown email
// and wrong password fail identically with model.ErrInvalidCredentials.
func (a *Auth) Login(ctx context.Context, email, password string) (model.TokenPair, error) {
	email = NormalizeEmail(email)
	a.logger.Debug("Auth service: starting user login", "email", email)

	if err := a.limiter.Check(ctx, email); err != nil {
		if errors.Is(err, model.ErrTooManyAttempts) {
			a.logger.Warn("Auth service: login throttled", "email", email)
			a.metrics.Login(metrics.OutcomeThrottled)
			return model.TokenPair{}, err
		}
		a.metrics.Login(metrics.OutcomeUnavailable)
		return model.TokenPair{}, unavailable("check login limiter", err)
	}

	user, err := a.userStore.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		a.logger.Error("Auth service: failed to get user by email",
			"email", email,
			"error", err.Error())
		a.metrics.Login(metrics.OutcomeUnavailable)
		return model.TokenPair{}, unavailable("get user by email", err)
	}

	encoded := user.PasswordHash
	if errors.Is(err, model.ErrNotFound) {
		encoded = a.dummyHash
	}

	if !a.hasher.Verify(password, encoded) || user.ID == uuid.Nil {
		a.recordFailure(ctx, email)
		return model.TokenPair{}, model.ErrInvalidCredentials
	}

	if err := a.limiter.Reset(ctx, email); err != nil {
		a.logger.Warn("Auth service: failed to reset login limiter",
			"email", email,
			"error", err.Error())
	}

	pair, err := a.tokenService.Issue(ctx, user.ID)
	if err != nil {
		a.metrics.Login(metrics.OutcomeUnavailable)
		return model.TokenPair{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	a.metrics.Login(metrics.OutcomeSuccess)
	a.logger.Info("Auth service: user logged in", "user_id", user.ID)

	return pair, nil
}

// Authenticate resolves an access token to its user.
func (a *Auth) Authenticate(ctx context.Context, accessToken string) (model.User, error) {
	claims, err := a.codec.Verify(accessToken, model.TokenTypeAccess)
	if err != nil {
		return model.User{}, model.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.User{}, model.ErrInvalidToken
	}

	user, err := a.userStore.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, unavailable("get user by id", err)
	}

	return user, nil
}

func (a *Auth) recordFailure(ctx context.Context, email string) {
	a.metrics.Login(metrics.OutcomeInvalid)
	a.logger.Info("Auth service: invalid credentials", "email", email)

	if err := a.limiter.Fail(ctx, email); err != nil {
		a.logger.Warn("Auth service: failed to record login failure",
			"email", email,
			"error", err.Error())
	}
}
