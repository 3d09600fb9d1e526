// Command purge archives expired refresh tokens to object storage and
// removes them from the ledger.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dtroode/authcore/internal/config"
	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/repository/postgres"
	"github.com/dtroode/authcore/internal/service"
	"github.com/dtroode/authcore/internal/storage/minio"
)

func main() {
	grace := flag.Duration("grace", 24*time.Hour, "only archive tokens expired for at least this long")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.NewToolConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	if *grace < 0 {
		logger.Fatal("grace must not be negative", "grace", grace.String())
	}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN, postgres.Options{
		MaxConns:     2,
		QueryTimeout: cfg.Database.QueryTimeout,
	})
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	archive, err := minio.Open(ctx, minio.Options{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to initialize archive storage", "error", err)
	}

	archiver := service.NewArchiver(postgres.NewRefreshTokenRepository(db), archive, cfg.Archive.BatchSize, logger)

	before := time.Now().Add(-*grace)
	result, err := archiver.Archive(ctx, before)
	if err != nil {
		logger.Fatal("archive failed",
			"error", err,
			"objects_written", len(result.Objects),
			"rows_deleted", result.Deleted)
	}

	logger.Info("archive complete",
		"before", before.UTC().Format(time.RFC3339),
		"objects_written", len(result.Objects),
		"rows_deleted", result.Deleted)
}
