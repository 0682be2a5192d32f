// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/homeready/internal/app/system/docstore/memstore"
	"github.com/dalemusser/homeready/internal/app/system/docstore/mongostore"
	"github.com/dalemusser/homeready/internal/app/system/indexes"
	"github.com/dalemusser/homeready/internal/app/system/metrics"
	"github.com/dalemusser/homeready/internal/app/system/ratelimit"
	"github.com/dalemusser/homeready/internal/app/system/timeouts"
	"github.com/dalemusser/homeready/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the configured document store backend.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	reg := metrics.New()

	if appCfg.StoreBackend == BackendMemory {
		logger.Info("document store: memory")
		return DBDeps{Store: reg.Store(memstore.New()), Metrics: reg, Limiters: &ratelimit.Group{}}, nil
	}

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("homeready")
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(appCfg.MongoDatabase)
	logger.Info("document store: mongo",
		zap.String("database", appCfg.MongoDatabase),
		zap.Bool("strict_batches", appCfg.MongoStrictBatches))

	store := mongostore.New(db, logger, mongostore.Strict(appCfg.MongoStrictBatches))
	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Store:         reg.Store(store),
		Metrics:       reg,
		Limiters:      &ratelimit.Group{},
	}, nil
}

// EnsureSchema attaches the Mongo JSON-Schema validators (mongo backend
// only) and creates the application indexes. It is idempotent.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	if deps.MongoDatabase != nil {
		if err := validators.EnsureAll(ctx, deps.MongoDatabase, logger); err != nil {
			logger.Error("ensure validators failed", zap.Error(err))
			return fmt.Errorf("ensure validators: %w", err)
		}
	}
	if err := indexes.EnsureAll(ctx, deps.Store); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return fmt.Errorf("ensure indexes: %w", err)
	}
	logger.Info("indexes ensured", zap.String("backend", appCfg.StoreBackend))
	return nil
}
