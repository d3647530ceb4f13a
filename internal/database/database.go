// Package database opens the gorm connections behind the SQL storage
// backends: Postgres, or SQLite on disk or in memory.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/realthrust/extension/internal/config"
)

const maxOpenConns = 10

var (
	// ErrClosed is returned by operations on a closed connection.
	ErrClosed = errors.New("database closed")

	memorySeq atomic.Uint64
)

var sqlitePragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
}

// Conn is an open database.
type Conn struct {
	DB *gorm.DB

	sql      *sql.DB
	log      zerolog.Logger
	inMemory bool
	fellBack bool
	// dumpPath receives an in-memory database on Close.
	dumpPath string
}

// OpenPostgres connects to Postgres. When the server cannot be reached it
// logs the failure and returns an in-memory SQLite connection instead, which
// FellBack reports.
func OpenPostgres(cfg config.PostgresConfig, log zerolog.Logger) (*Conn, error) {
	log.Debug().Str("host", cfg.Host).Str("port", cfg.Port).Str("database", cfg.Database).
		Msg("Connecting to Postgres DB")

	c, err := openPostgres(cfg, log)
	if err == nil {
		log.Info().Msg("Connected to database")
		return c, nil
	}

	log.Error().Err(err).Msg("Postgres unavailable, using in-memory SQLite")
	c, err = OpenSQLite("", "", log)
	if err != nil {
		return nil, err
	}
	c.fellBack = true
	return c, nil
}

func openPostgres(cfg config.PostgresConfig, log zerolog.Logger) (*Conn, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	return &Conn{DB: db, sql: sqlDB, log: log}, nil
}

// OpenSQLite opens the SQLite file at path, or a private in-memory database
// when path is empty. An in-memory database is copied to dumpPath on Close
// when dumpPath is set.
func OpenSQLite(path, dumpPath string, log zerolog.Logger) (*Conn, error) {
	dsn := path
	if path == "" {
		dsn = fmt.Sprintf("file:realthrust%d?mode=memory&cache=shared", memorySeq.Add(1))
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("setting %q: %w", pragma, err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql interface: %w", err)
	}

	c := &Conn{DB: db, sql: sqlDB, log: log, inMemory: path == ""}
	if c.inMemory {
		c.dumpPath = dumpPath
		log.Info().Str("dump", dumpPath).Msg("Using in-memory SQLite DB")
	} else {
		log.Info().Str("path", path).Msg("Using SQLite DB")
	}
	return c, nil
}

// Dialect names the driver in use, "postgres" or "sqlite".
func (c *Conn) Dialect() string {
	return c.DB.Dialector.Name()
}

// InMemory reports whether the data lives only in this process.
func (c *Conn) InMemory() bool { return c.inMemory }

// FellBack reports whether OpenPostgres had to substitute SQLite.
func (c *Conn) FellBack() bool { return c.fellBack }

// Migrate creates or updates the tables for models.
func (c *Conn) Migrate(models ...any) error {
	if c == nil || c.sql == nil {
		return ErrClosed
	}
	if err := c.DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	c.log.Info().Int("models", len(models)).Msg("Schema migrated")
	return nil
}

// Dump writes a copy of a SQLite database to path, replacing any file there.
func (c *Conn) Dump(path string) error {
	if c == nil || c.sql == nil {
		return ErrClosed
	}
	if c.Dialect() != "sqlite" {
		return fmt.Errorf("dump needs sqlite, have %s", c.Dialect())
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing old dump: %w", err)
	}

	start := time.Now()
	if err := c.DB.Exec("VACUUM INTO ?", path).Error; err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}
	c.log.Debug().Dur("took", time.Since(start)).Str("path", path).Msg("Dumped SQLite DB")
	return nil
}

// Close dumps an in-memory database when a dump path was given and closes
// the connection. Closing twice is a no-op.
func (c *Conn) Close() error {
	if c == nil || c.sql == nil {
		return nil
	}
	var dumpErr error
	if c.inMemory && c.dumpPath != "" {
		dumpErr = c.Dump(c.dumpPath)
	}
	err := c.sql.Close()
	c.sql = nil
	return errors.Join(dumpErr, err)
}
