package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/wm2snap/migrator/internal/config"
	"github.com/wm2snap/migrator/internal/store/model"
	"github.com/wm2snap/migrator/pkg/migrations"
)

// History is the append-only log of completed migrations.
type History interface {
	// List returns every record in insertion order. An empty store is not an error.
	List(ctx context.Context) ([]model.MigrationRecord, error)
	// Append persists the record and returns it as stored. Timestamp is set when zero.
	Append(ctx context.Context, record model.MigrationRecord) (model.MigrationRecord, error)
	Close() error
}

// New opens the history backend selected by the configuration.
func New(cfg *config.Config) (History, error) {
	if err := cfg.ValidateHistory(); err != nil {
		return nil, config.NewErrConfiguration("%w", err)
	}

	switch strings.ToLower(cfg.History.Type) {
	case config.HistoryTypeSqlite, config.HistoryTypePgsql:
		db, err := InitDB(cfg)
		if err != nil {
			return nil, err
		}
		if err := migrations.MigrateStore(db, strings.ToLower(cfg.History.Type)); err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, fmt.Errorf("failed to migrate history database: %w", err)
		}
		return NewGormHistory(db), nil
	default:
		h, err := NewFileHistory(cfg.History.File)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
}
