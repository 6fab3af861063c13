// Command dbcheck verifies that the document database named by DB_URI is reachable.
package main

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/config"
	"github.com/spec-kit/issue-tracker/internal/observability"
	"github.com/spec-kit/issue-tracker/internal/persistence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	os.Exit(run(context.Background(), cfg.Mongo, logger.Named("dbcheck")))
}

func run(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) int {
	defer logger.Sync() //nolint:errcheck

	if cfg.URI == "" {
		logger.Error("DB_URI is not set")
		return 1
	}

	db, err := persistence.NewMongo(ctx, cfg, logger)
	if err != nil {
		logger.Error("database unreachable", zap.Error(err))
		return 1
	}

	closeCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout())
	defer cancel()
	db.Close(closeCtx)

	logger.Info("database reachable", zap.String("database", cfg.Database))
	return 0
}
