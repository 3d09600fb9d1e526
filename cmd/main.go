package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc/reflection"

	grpcctx "github.com/dtroode/authcore/internal/api/grpc/context"
	"github.com/dtroode/authcore/internal/api/grpc/router"
	grpcServer "github.com/dtroode/authcore/internal/api/grpc/server"
	"github.com/dtroode/authcore/internal/api/ops"
	"github.com/dtroode/authcore/internal/config"
	"github.com/dtroode/authcore/internal/limiter"
	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/metrics"
	"github.com/dtroode/authcore/internal/model"
	"github.com/dtroode/authcore/internal/password"
	"github.com/dtroode/authcore/internal/repository/postgres"
	"github.com/dtroode/authcore/internal/seed"
	"github.com/dtroode/authcore/internal/server"
	"github.com/dtroode/authcore/internal/service"
	"github.com/dtroode/authcore/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN, postgres.Options{
		MaxConns:     cfg.Database.MaxConns,
		QueryTimeout: cfg.Database.QueryTimeout,
	})
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	codec, err := token.NewJWT(cfg.JWT.Secret)
	if err != nil {
		logger.Fatal("failed to initialize token codec", "error", err)
	}

	hasher := password.NewHasher(password.Params{
		Time:      cfg.KDF.Time,
		MemoryKiB: cfg.KDF.MemKiB,
		Threads:   cfg.KDF.Par,
	})
	m := metrics.New(trackedPermissions()...)

	pingers := map[string]ops.Pinger{"postgres": db}
	loginLimiter, closeLimiter := newLimiter(ctx, cfg, logger, pingers)
	defer closeLimiter()

	userRepo := postgres.NewUserRepository(db)
	rbacRepo := postgres.NewRBACRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)

	tokenService := service.NewTokenService(codec, refreshTokenRepo, service.SessionConfig{
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	}, m, logger)
	authService, err := service.NewAuth(userRepo, hasher, codec, tokenService, loginLimiter, m, logger)
	if err != nil {
		logger.Fatal("failed to initialize auth service", "error", err)
	}
	resolver := service.NewPermissionResolver(rbacRepo, m, logger)
	users := service.NewUsers(userRepo, rbacRepo, hasher, password.NewPolicy(cfg.Password.MinLength), logger)

	r := router.New(router.Services{
		Auth:        authService,
		Tokens:      tokenService,
		Permissions: resolver,
		Users:       users,
	}, grpcctx.NewManager(), m, logger)
	gs := r.Register()
	reflection.Register(gs)

	grpcSrv := grpcServer.NewGRPCServer(gs, fmt.Sprintf(":%s", cfg.GRPC.Port))
	opsSrv := ops.NewServer(cfg.MetricsAddr, ops.NewHandler(m, logger, pingers))
	sl := server.NewListener(cfg.GRPC.EnableHTTPS, cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName)

	var wg sync.WaitGroup
	wg.Add(2)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting gRPC server", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("gRPC server stopped with error", "error", err)
			stop()
		}
	}(grpcSrv)
	go func() {
		defer wg.Done()
		logger.Info("Starting ops server", "address", opsSrv.Addr)
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server stopped with error", "error", err)
			stop()
		}
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")
	r.Health().Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := grpcSrv.Stop(shutdownCtx); err != nil {
		logger.Error("error during gRPC server shutdown", "error", err, "address", grpcSrv.Address())
	}
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during ops server shutdown", "error", err)
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

// newLimiter returns the Redis login limiter, or a no-op one when no Redis
// address is configured.
func newLimiter(ctx context.Context, cfg *config.Config, logger *logger.Logger, pingers map[string]ops.Pinger) (model.LoginLimiter, func()) {
	if cfg.Redis.Addr == "" {
		logger.Warn("REDIS_ADDR is empty, login throttling disabled")
		return limiter.Noop{}, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", "error", err)
	}
	pingers["redis"] = ops.PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})

	l := limiter.NewRedis(client, limiter.Config{
		MaxAttempts: cfg.Login.MaxAttempts,
		Window:      cfg.Login.LockoutWindow,
	})
	return l, func() { _ = client.Close() }
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

// trackedPermissions are the permission names authorization metrics are
// labelled with: the guarded ones plus the default access model.
func trackedPermissions() []string {
	names := router.GuardedPermissions()
	if doc, err := seed.Default(); err == nil {
		names = append(names, doc.Permissions...)
	}
	return names
}
