package repomanager

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkovs/applybot/internal/models"
)

func TestSelectBackend(t *testing.T) {
	tests := []struct {
		dsn    string
		driver string
	}{
		{"postgres://user:pw@localhost:5432/jobs", "pgx"},
		{"postgresql://user:pw@localhost:5432/jobs", "pgx"},
		{"file:data/jobs.db", "sqlite"},
		{"jobs.db", "sqlite"},
		{":memory:", "sqlite"},
	}
	for _, tt := range tests {
		driver, manager := selectBackend(tt.dsn)
		assert.Equal(t, tt.driver, driver, tt.dsn)
		assert.NotNil(t, manager)
	}
}

func TestSQLiteManager_MigrationsUseSQLiteDir(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	m := &SQLiteRepositoryManager{}
	require.NoError(t, m.RunMigrations(context.Background(), nil))
	assert.Equal(t, "sqlite", gotDir)
}

func TestPostgresManager_MigrationsUsePostgresDir(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	m := &PostgresRepositoryManager{}
	require.NoError(t, m.RunMigrations(context.Background(), nil))
	assert.Equal(t, "postgres", gotDir)
}

func TestOpen_SQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	db, manager, err := Open(ctx, "file:"+t.TempDir()+"/jobs.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// the embedded migrations produced a usable schema
	repo := manager.Jobs(db)
	_, err = repo.ListByStatus(ctx, models.StatusNew)
	require.NoError(t, err)

	_, err = manager.Attempts(db).ListByJobURL(ctx, "https://example.test/jobs/view/1")
	require.NoError(t, err)
}
