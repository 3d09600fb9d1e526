package middleware

import (
	"context"
	"errors"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/model"
)

// Authenticator resolves an access token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (model.User, error)
}

// Authenticate validates bearer tokens and injects the user ID into context.
type Authenticate struct {
	authenticator  Authenticator
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewAuthenticate(authenticator Authenticator, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{authenticator: authenticator, contextManager: contextManager, logger: logger}
}

// AuthFunc implements auth.AuthFunc. It reads "authorization: bearer <token>"
// and rejects the call with Unauthenticated unless the token resolves to an
// existing user.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	token, err := auth.AuthFromMD(ctx, "bearer")
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "missing bearer token")
	}

	user, err := m.authenticator.Authenticate(ctx, token)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrInvalidToken):
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, model.ErrUserNotFound):
		return nil, status.Error(codes.Unauthenticated, "user not found")
	default:
		m.logger.Error("Authenticate middleware: failed to authenticate", "error", err.Error())
		return nil, status.Error(codes.Unavailable, "service unavailable")
	}

	return m.contextManager.SetUserIDToContext(ctx, user.ID), nil
}
