package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/realthrust/extension/internal/config"
	"github.com/realthrust/extension/internal/database"
	"github.com/realthrust/extension/internal/storage/gormstore"
	"github.com/realthrust/extension/internal/storage/memory"
)

// NewBackend creates a storage backend based on configuration. Type "none"
// returns a nil Backend.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "memory":
		return memory.New(cfg.Memory), nil
	case "sqlite":
		conn, err := database.OpenSQLite(cfg.SQLite.Path, cfg.SQLite.DumpPath, log)
		if err != nil {
			return nil, err
		}
		return gormstore.New(conn), nil
	case "postgres":
		conn, err := database.OpenPostgres(cfg.Postgres, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		return gormstore.New(conn), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
