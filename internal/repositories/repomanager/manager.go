// Package repomanager vends backend-specific repository implementations and
// runs schema migrations. The backend is selected from the DSN: postgres://
// and postgresql:// DSNs use pgx, anything else is treated as a sqlite path
// or file: URI.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/avolkovs/applybot/internal/dbx"
	"github.com/avolkovs/applybot/internal/migrations"
	"github.com/avolkovs/applybot/internal/repositories/attempts"
	"github.com/avolkovs/applybot/internal/repositories/jobs"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// RepositoryManager vends repositories bound to a DBTX and a migration hook
// for the matching dialect.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Jobs(db dbx.DBTX) jobs.Repository
	Attempts(db dbx.DBTX) attempts.Repository
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Open connects to the store named by dsn, runs migrations and returns the
// handle together with the matching manager. The caller owns closing db.
func Open(ctx context.Context, dsn string) (*sql.DB, RepositoryManager, error) {
	driver, manager := selectBackend(dsn)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := manager.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, manager, nil
}

func selectBackend(dsn string) (driver string, manager RepositoryManager) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "pgx", &PostgresRepositoryManager{}
	}
	return "sqlite", &SQLiteRepositoryManager{}
}

// SQLiteRepositoryManager vends sqlite-backed repositories.
type SQLiteRepositoryManager struct{}

// Jobs returns a jobs.Repository bound to the provided DBTX.
func (m *SQLiteRepositoryManager) Jobs(db dbx.DBTX) jobs.Repository {
	return jobs.NewSQLiteRepository(db)
}

// Attempts returns an attempts.Repository bound to the provided DBTX.
func (m *SQLiteRepositoryManager) Attempts(db dbx.DBTX) attempts.Repository {
	return attempts.NewSQLiteRepository(db)
}

// RunMigrations sets up goose with the embedded sqlite migrations and runs
// them against the provided database connection.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, "sqlite")
}

// PostgresRepositoryManager vends pgx-backed repositories.
type PostgresRepositoryManager struct{}

// Jobs returns a jobs.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Jobs(db dbx.DBTX) jobs.Repository {
	return jobs.NewPostgresRepository(db)
}

// Attempts returns an attempts.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Attempts(db dbx.DBTX) attempts.Repository {
	return attempts.NewPostgresRepository(db)
}

// RunMigrations sets up goose with the embedded postgres migrations and runs
// them against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, "postgres")
}
