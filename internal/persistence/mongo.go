package persistence

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/config"
)

// Mongo wraps a connected mongo client and the database issues live in.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewMongo connects to the document database named by cfg.URI and verifies the connection.
func NewMongo(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*Mongo, error) {
	if cfg.URI == "" {
		return nil, errors.New("DB_URI is required for the mongo storage driver")
	}

	logger.Info("connecting to mongo", zap.String("database", cfg.Database))
	opts := options.Client().ApplyURI(cfg.URI).SetConnectTimeout(cfg.ConnectTimeout())
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("connected to mongo")
	return &Mongo{Client: client, Database: client.Database(cfg.Database), logger: logger}, nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) {
	if m == nil || m.Client == nil {
		return
	}
	if err := m.Client.Disconnect(ctx); err != nil {
		m.logger.Warn("mongo disconnect failed", zap.Error(err))
		return
	}
	m.logger.Info("disconnected from mongo")
}

// Ping verifies Mongo connectivity.
func (m *Mongo) Ping(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return errors.New("mongo client not configured")
	}
	return m.Client.Ping(ctx, readpref.Primary())
}
