package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avolkovs/applybot/internal/common"
	"github.com/avolkovs/applybot/internal/dbx"
	"github.com/avolkovs/applybot/internal/models"
)

// PostgresRepository implements Repository over pgx's database/sql driver.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository returns a new PostgresRepository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, job *models.JobRecord) error {
	query := `INSERT INTO jobs (url, title, company, location, description, status, discovered_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT(url) DO UPDATE SET
				location = excluded.location,
				description = excluded.description
	`
	_, err := r.db.ExecContext(ctx, query,
		job.URL, job.Title, job.Company, job.Location, job.Description,
		job.Status, job.DiscoveredAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert job: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByURL(ctx context.Context, url string) (*models.JobRecord, error) {
	query := `SELECT id, url, title, company, location, description, status, discovered_at, updated_at
			FROM jobs WHERE url = $1`
	row := r.db.QueryRowContext(ctx, query, url)

	var job models.JobRecord
	err := row.Scan(&job.ID, &job.URL, &job.Title, &job.Company, &job.Location,
		&job.Description, &job.Status, &job.DiscoveredAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", url, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select job: %w", err)
	}
	return &job, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, url string, status models.Status) error {
	current, err := r.FindByURL(ctx, url)
	if err != nil {
		return err
	}
	if !models.CanTransition(current.Status, status) {
		return fmt.Errorf("%w: %s -> %s (%s)", common.ErrIllegalTransition, current.Status, status, url)
	}

	query := `UPDATE jobs SET status = $1, updated_at = $2 WHERE url = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), url, current.Status)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status models.Status) ([]models.JobRecord, error) {
	query := `SELECT id, url, title, company, location, description, status, discovered_at, updated_at
			FROM jobs WHERE status = $1 ORDER BY discovered_at, id`
	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to select jobs: %w", err)
	}
	defer rows.Close()

	var result []models.JobRecord
	for rows.Next() {
		var job models.JobRecord
		if err := rows.Scan(&job.ID, &job.URL, &job.Title, &job.Company, &job.Location,
			&job.Description, &job.Status, &job.DiscoveredAt, &job.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
