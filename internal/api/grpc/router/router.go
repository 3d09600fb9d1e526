// Package router assembles the gRPC server: interceptor chain, services and
// health reporting.
package router

import (
	"context"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authcore/internal/api/grpc/handler"
	"github.com/dtroode/authcore/internal/api/grpc/middleware"
	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/metrics"
	"github.com/dtroode/authcore/internal/model"
)

// Permission names required by guarded methods.
const (
	PermissionCreateUser = "create_user"
	PermissionViewUser   = "view_user"
	PermissionEditUser   = "edit_user"
	PermissionDeleteUser = "delete_user"
)

// publicMethods are served without an access token.
var publicMethods = map[string]struct{}{
	handler.MethodLogin:   {},
	handler.MethodRefresh: {},
	handler.MethodLogout:  {},
}

// PermissionRules maps guarded methods to the permission they require.
func PermissionRules() map[string]string {
	return map[string]string{
		handler.MethodCreateUser:   PermissionCreateUser,
		handler.MethodGetUser:      PermissionViewUser,
		handler.MethodListUsers:    PermissionViewUser,
		handler.MethodSetUserRoles: PermissionEditUser,
		handler.MethodUpdateUser:   PermissionEditUser,
		handler.MethodDeleteUser:   PermissionDeleteUser,
	}
}

// GuardedPermissions lists the distinct permissions named by PermissionRules,
// sorted.
func GuardedPermissions() []string {
	seen := make(map[string]struct{})
	names := make([]string, 0, len(PermissionRules()))
	for _, name := range PermissionRules() {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Services are the application services the handlers delegate to.
type Services struct {
	Auth interface {
		handler.AuthService
		middleware.Authenticator
	}
	Tokens      handler.TokenService
	Permissions handler.PermissionService
	Users       handler.UserService
}

type Router struct {
	services       Services
	contextManager model.ContextManager
	health         *health.Server
	metrics        *metrics.Metrics
	logger         *logger.Logger
}

func New(services Services, contextManager model.ContextManager, metrics *metrics.Metrics, logger *logger.Logger) *Router {
	return &Router{
		services:       services,
		contextManager: contextManager,
		health:         health.NewServer(),
		metrics:        metrics,
		logger:         logger,
	}
}

// Health returns the health server so the caller can flip serving status on
// shutdown.
func (r *Router) Health() *health.Server {
	return r.health
}

// requiresAuth selects every call except public methods, health checks and
// reflection.
func requiresAuth(_ context.Context, c interceptors.CallMeta) bool {
	if _, ok := publicMethods[c.FullMethod()]; ok {
		return false
	}
	return !strings.HasPrefix(c.FullMethod(), "/grpc.health.v1.") &&
		!strings.HasPrefix(c.FullMethod(), "/grpc.reflection.")
}

// Register builds the server with all services registered.
func (r *Router) Register(opts ...grpc.ServerOption) *grpc.Server {
	logging := middleware.NewLogging(r.logger, r.metrics)
	authenticate := middleware.NewAuthenticate(r.services.Auth, r.contextManager, r.logger)
	authorize := middleware.NewAuthorize(r.services.Permissions, r.contextManager, PermissionRules(), r.logger)
	recoveryOpt := recovery.WithRecoveryHandlerContext(r.recoverPanic)

	opts = append(opts,
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(recoveryOpt),
			logging.HandleGRPC,
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
			authorize.HandleGRPC,
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(recoveryOpt),
			selector.StreamServerInterceptor(
				auth.StreamServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
		),
	)

	s := grpc.NewServer(opts...)

	handler.RegisterAuthServer(s, handler.NewAuth(
		r.services.Auth,
		r.services.Tokens,
		r.services.Permissions,
		r.services.Users,
		r.contextManager,
		r.logger,
	))
	handler.RegisterUsersServer(s, handler.NewUsers(r.services.Users, r.logger))

	healthpb.RegisterHealthServer(s, r.health)
	r.health.SetServingStatus(handler.AuthServiceName, healthpb.HealthCheckResponse_SERVING)
	r.health.SetServingStatus(handler.UsersServiceName, healthpb.HealthCheckResponse_SERVING)

	return s
}

func (r *Router) recoverPanic(ctx context.Context, p any) error {
	r.logger.Error("gRPC handler panicked",
		"panic", p,
		"stack", string(debug.Stack()))
	return status.Error(codes.Internal, "internal server error")
}
