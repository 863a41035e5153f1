package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bcnelson/widget-authorizer/internal/config"
	"github.com/bcnelson/widget-authorizer/internal/domain"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

var gooseDialects = map[string]string{
	"sqlite3":  "sqlite3",
	"postgres": "postgres",
	"pgx":      "postgres",
	"mysql":    "mysql",
}

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	// MySQL
	if strings.Contains(errStr, "Duplicate entry") {
		return true
	}
	return false
}

// Store owns the database handle shared by the dashboard store and the widget metadata DAO.
type Store struct {
	db      *sqlx.DB
	driver  string
	queries *QueryManager
	log     *slog.Logger
}

// Open connects to the database, applies the dashboard schema migrations and returns a Store.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	queries, err := NewQueryManager(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Run migrations
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gooseDialects[cfg.Driver]); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: cfg.Driver, queries: queries, log: log}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Product returns the database product behind the store.
func (s *Store) Product() Product {
	return s.queries.Product()
}

// WidgetMetadata returns a DAO for the widget resource table sharing this store's pool.
func (s *Store) WidgetMetadata() *WidgetMetadataDao {
	return NewWidgetMetadataDao(s.db, s.queries, s.log)
}

// helper to get the correct database interface
type dbInterface interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// rollbackQuietly rolls tx back, logging instead of returning any failure so the
// caller's original error is what surfaces.
func rollbackQuietly(log *slog.Logger, tx *sqlx.Tx) {
	if tx == nil {
		return
	}
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Error("an error occurred when rolling back the transaction", "error", err)
	}
}

// closeQuietly closes c, logging any failure.
func closeQuietly(log *slog.Logger, what string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Error("an error occurred when closing "+what, "error", err)
	}
}

// persistenceError classifies a DDL/DML failure.
func persistenceError(message string, err error) error {
	return domain.NewError(domain.KindPersistence, message, err)
}
