// Command seed loads permissions, roles and initial users into the database.
// Running it again changes nothing.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtroode/authcore/internal/config"
	"github.com/dtroode/authcore/internal/logger"
	"github.com/dtroode/authcore/internal/password"
	"github.com/dtroode/authcore/internal/repository/postgres"
	"github.com/dtroode/authcore/internal/seed"
)

func main() {
	file := flag.String("file", "", "seed YAML file (default: built-in access model)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.NewToolConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	doc, err := loadDocument(*file)
	if err != nil {
		logger.Fatal("failed to load seed document", "error", err)
	}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN, postgres.Options{
		MaxConns:     2,
		QueryTimeout: cfg.Database.QueryTimeout,
	})
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	hasher := password.NewHasher(password.Params{
		Time:      cfg.KDF.Time,
		MemoryKiB: cfg.KDF.MemKiB,
		Threads:   cfg.KDF.Par,
	})
	applier := seed.NewApplier(postgres.NewRBACRepository(db), postgres.NewUserRepository(db), hasher, logger)

	report, err := applier.Apply(ctx, doc)
	if err != nil {
		logger.Fatal("seed failed", "error", err)
	}
	logger.Info("seed complete",
		"users_created", report.UsersCreated,
		"roles_assigned", report.RolesAssigned)
}

func loadDocument(path string) (*seed.Document, error) {
	if path == "" {
		return seed.Default()
	}
	return seed.Load(path)
}
