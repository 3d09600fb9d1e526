package handler

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/model"
)

// AuthService verifies credentials.
type AuthService interface {
	Login(ctx context.Context, email, password string) (model.TokenPair, error)
}

// TokenService rotates and revokes refresh tokens.
type TokenService interface {
	Refresh(ctx context.Context, presented string) (model.TokenPair, error)
	Logout(ctx context.Context, presented string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) error
}

// PermissionService resolves the caller's permissions.
type PermissionService interface {
	EffectivePermissions(ctx context.Context, userID uuid.UUID) (model.PermissionSet, error)
	Authorize(ctx context.Context, userID uuid.UUID, permission string) (bool, error)
}

var _ AuthServer = (*Auth)(nil)

// Auth handles authcore.v1.Auth.
type Auth struct {
	authService    AuthService
	tokenService   TokenService
	permissions    PermissionService
	userService    UserService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewAuth(
	authService AuthService,
	tokenService TokenService,
	permissions PermissionService,
	userService UserService,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		authService:    authService,
		tokenService:   tokenService,
		permissions:    permissions,
		userService:    userService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Login exchanges {email, password} for a token pair.
func (h *Auth) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, err := requiredString(req, "email")
	if err != nil {
		return nil, err
	}
	password, err := requiredString(req, "password")
	if err != nil {
		return nil, err
	}

	pair, err := h.authService.Login(ctx, email, password)
	if err != nil {
		return nil, handleError(err)
	}
	return pairToStruct(pair)
}

// Refresh exchanges {refresh_token} for a new pair. Every rejection reads
// the same to the caller.
func (h *Auth) Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	presented, err := requiredString(req, "refresh_token")
	if err != nil {
		return nil, err
	}

	pair, err := h.tokenService.Refresh(ctx, presented)
	if err != nil {
		return nil, handleError(err)
	}
	return pairToStruct(pair)
}

// Logout revokes {refresh_token}. It succeeds for unknown tokens too.
func (h *Auth) Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	presented, err := requiredString(req, "refresh_token")
	if err != nil {
		return nil, err
	}

	if err := h.tokenService.Logout(ctx, presented); err != nil {
		return nil, handleError(err)
	}
	return ack(), nil
}

// LogoutAll revokes every refresh token of the caller.
func (h *Auth) LogoutAll(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.tokenService.LogoutAll(ctx, userID); err != nil {
		return nil, handleError(err)
	}
	return ack(), nil
}

// Me returns the caller's profile and roles.
func (h *Auth) Me(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}

	user, err := h.userService.Get(ctx, userID)
	if err != nil {
		return nil, handleError(err)
	}
	return userToStruct(user)
}

// Permissions lists the caller's effective permissions, sorted.
func (h *Auth) Permissions(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}

	perms, err := h.permissions.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, handleError(err)
	}
	return newStruct(map[string]interface{}{
		"permissions": stringsToList(perms.Names()),
	})
}

// CheckPermission answers {permission} with {permission, allowed}.
func (h *Auth) CheckPermission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}
	permission, err := requiredString(req, "permission")
	if err != nil {
		return nil, err
	}

	allowed, err := h.permissions.Authorize(ctx, userID, permission)
	if err != nil {
		return nil, handleError(err)
	}
	return newStruct(map[string]interface{}{
		"permission": permission,
		"allowed":    allowed,
	})
}

func (h *Auth) caller(ctx context.Context) (uuid.UUID, error) {
	userID, ok := h.contextManager.GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, status.Error(codes.Unauthenticated, "not authenticated")
	}
	return userID, nil
}
