package server

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/household-extractor/internal/common"
	repo "github.com/joseph-ayodele/household-extractor/internal/repository"
)

// OpenStore connects the run store selected by cfg.Driver. It returns a nil
// store for the "none" driver; callers treat persistence as optional.
func OpenStore(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (repo.RunStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case "postgres":
		logger.Info("connecting to database", "driver", cfg.Driver)
		store, err := repo.NewPostgresStore(ctx, repo.Config{
			DSN:              cfg.DSN,
			MaxConns:         cfg.MaxConns,
			MinConns:         cfg.MinConns,
			MaxConnLifetime:  cfg.MaxConnLifetime,
			MaxConnIdleTime:  cfg.MaxConnIdleTime,
			DialTimeout:      cfg.DialTimeout,
			StatementTimeout: cfg.StatementTimeout,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}
		logger.Info("successfully connected to database")
		return store, nil
	case "sqlite":
		store, err := repo.OpenSQLite(cfg.SQLitePath, logger)
		if err != nil {
			logger.Error("failed to open sqlite store", "path", cfg.SQLitePath, "error", err)
			return nil, err
		}
		return store, nil
	case "none", "":
		logger.Info("run persistence disabled")
		return nil, nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "unknown database driver "+cfg.Driver, common.ErrInvalidInput)
	}
}

// CloseStore closes the store if there is one.
func CloseStore(store repo.RunStore, logger *slog.Logger) {
	if store == nil {
		return
	}
	logger.Info("closing run store")
	store.Close()
}
