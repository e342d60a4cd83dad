package cmd

import (
	"context"
	"fmt"

	"schema-sync/core/cache"
	"schema-sync/core/config"
	"schema-sync/core/database"
	"schema-sync/core/logger"
	"schema-sync/core/schemacache"
	"schema-sync/core/storage"
	"schema-sync/feature/survey"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runtime holds the dependencies shared by the commands.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	shared  cache.Client
	surveys *survey.Service
}

// newRuntime loads the configuration and connects to the database and the shared cache.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logg.Info("Connected to database",
		zap.String("driver", db.Dialector.Name()),
		zap.String("database", cfg.Database.Name))

	shared, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared cache: %w", err)
	}
	if r, ok := shared.(*cache.Redis); ok {
		if err := r.Ping(ctx); err != nil {
			// Not fatal: every lookup then treats its schema as stale.
			logg.Warn("Shared cache unreachable", zap.Error(err))
		}
	} else {
		logg.Warn("No cache host configured, fingerprints are only shared within this process")
	}

	schemas := schemacache.New(shared, logg)
	return &runtime{
		cfg:     cfg,
		logger:  logg,
		db:      db,
		shared:  shared,
		surveys: survey.NewService(db, schemas, cfg.Engine, logg),
	}, nil
}

// objectStore creates the object storage client.
func (r *runtime) objectStore() (storage.Client, error) {
	client, err := storage.NewClient(r.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return client, nil
}

func (r *runtime) importer(client storage.Client) *survey.Importer {
	return survey.NewImporter(client, r.cfg.Storage.Bucket, r.cfg.Engine.DefinitionsPrefix, r.surveys, r.logger)
}

func (r *runtime) close() {
	if c, ok := r.shared.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = r.logger.Sync()
}
