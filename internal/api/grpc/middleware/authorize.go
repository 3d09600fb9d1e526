package middleware

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/model"
)

// Authorizer decides whether a user holds a permission.
type Authorizer interface {
	Authorize(ctx context.Context, userID uuid.UUID, permission string) (bool, error)
}

// Authorize guards methods with a required permission. Methods without a
// rule pass through; the rule set is fixed at construction.
type Authorize struct {
	authorizer     Authorizer
	contextManager model.ContextManager
	rules          map[string]string
	logger         *logger.Logger
}

// NewAuthorize takes rules keyed by full method name, e.g.
// "/authcore.v1.Users/CreateUser" -> "create_user".
func NewAuthorize(authorizer Authorizer, contextManager model.ContextManager, rules map[string]string, logger *logger.Logger) *Authorize {
	copied := make(map[string]string, len(rules))
	for method, perm := range rules {
		copied[method] = perm
	}
	return &Authorize{authorizer: authorizer, contextManager: contextManager, rules: copied, logger: logger}
}

// HandleGRPC runs after authentication. It returns PermissionDenied when the
// caller lacks the permission required by the method.
func (m *Authorize) HandleGRPC(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	permission, guarded := m.rules[info.FullMethod]
	if !guarded {
		return handler(ctx, req)
	}

	userID, ok := m.contextManager.GetUserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "not authenticated")
	}

	allowed, err := m.authorizer.Authorize(ctx, userID, permission)
	if err != nil {
		m.logger.Error("Authorize middleware: failed to resolve permissions",
			"user_id", userID,
			"method", info.FullMethod,
			"error", err.Error())
		return nil, status.Error(codes.Unavailable, "service unavailable")
	}
	if !allowed {
		m.logger.Info("Authorize middleware: permission denied",
			"user_id", userID,
			"method", info.FullMethod,
			"permission", permission)
		return nil, status.Error(codes.PermissionDenied, "permission denied")
	}

	return handler(ctx, req)
}
