// Package backend opens the storage and event backends selected by
// configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/rowflow/internal/config"
	"github.com/mmynk/rowflow/internal/events"
	"github.com/mmynk/rowflow/internal/storage"
	"github.com/mmynk/rowflow/internal/storage/csvfile"
	"github.com/mmynk/rowflow/internal/storage/postgres"
	"github.com/mmynk/rowflow/internal/storage/sqlite"
)

// OpenStore opens the account registry and partition store for cfg.Backend.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendCSV, "":
		store, err := csvfile.New(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open csv store: %w", err)
		}
		return store, nil
	case config.BackendSQLite:
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	case config.BackendPostgres:
		store, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Location describes where cfg keeps its data, for log lines.
// The Postgres DSN is omitted since it may carry a password.
func Location(cfg config.StorageConfig) string {
	switch cfg.Backend {
	case config.BackendSQLite:
		return cfg.SQLitePath
	case config.BackendPostgres:
		return "postgres"
	default:
		return cfg.DataDir
	}
}

// OpenPublisher connects the entry event publisher. Events are optional:
// without a URL, or when the broker is unreachable, it logs and returns a
// no-op publisher.
func OpenPublisher(cfg config.AMQPConfig, logger *slog.Logger) events.Publisher {
	if cfg.URL == "" {
		logger.Debug("Entry events disabled")
		return events.Noop{}
	}

	publisher, err := events.NewAMQPPublisher(cfg.URL, cfg.Exchange)
	if err != nil {
		logger.Warn("Entry events unavailable, continuing without them", "error", err)
		return events.Noop{}
	}

	logger.Info("Entry events enabled", "exchange", cfg.Exchange)
	return publisher
}
