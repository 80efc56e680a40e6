// Package analytics aggregates run statistics from the jobs and attempts
// tables. Queries use only portable SQL so both backends serve them; the
// placeholder style is the single per-backend difference.
package analytics

import (
	"context"
	"fmt"

	"github.com/avolkovs/applybot/internal/dbx"
	"github.com/avolkovs/applybot/internal/models"
)

// CompanyCount is one row of the top-companies breakdown: how many
// application attempts were recorded against the company's postings.
type CompanyCount struct {
	Company  string
	Attempts int
}

// Stats is a point-in-time summary of the store.
type Stats struct {
	TotalJobs     int
	TotalAttempts int
	OutcomeCounts map[models.Outcome]int
	StatusCounts  map[models.Status]int
	SuccessRate   float64
	TopCompanies  []CompanyCount
}

// Service computes Stats over a DBTX.
type Service struct {
	db       dbx.DBTX
	postgres bool
}

// NewService binds the service to db. Set postgres for $n placeholders.
func NewService(db dbx.DBTX, postgres bool) *Service {
	return &Service{db: db, postgres: postgres}
}

func (s *Service) placeholder(n int) string {
	if s.postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Collect gathers the full summary. The success rate is submitted attempts
// over all attempts, 0 when no attempts exist.
func (s *Service) Collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		OutcomeCounts: make(map[models.Outcome]int),
		StatusCounts:  make(map[models.Status]int),
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&stats.TotalJobs); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts`).Scan(&stats.TotalAttempts); err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	if err := s.groupCount(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`, func(k string, n int) {
		stats.StatusCounts[models.Status(k)] = n
	}); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, `SELECT outcome, COUNT(*) FROM attempts GROUP BY outcome`, func(k string, n int) {
		stats.OutcomeCounts[models.Outcome(k)] = n
	}); err != nil {
		return nil, err
	}

	if stats.TotalAttempts > 0 {
		stats.SuccessRate = float64(stats.OutcomeCounts[models.OutcomeSubmitted]) / float64(stats.TotalAttempts)
	}

	top, err := s.topCompanies(ctx, 5)
	if err != nil {
		return nil, err
	}
	stats.TopCompanies = top

	return stats, nil
}

func (s *Service) groupCount(ctx context.Context, query string, add func(key string, n int)) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to group count: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		add(key, n)
	}
	return rows.Err()
}

// topCompanies ranks companies by recorded attempts, so companies that were
// only discovered never appear.
func (s *Service) topCompanies(ctx context.Context, limit int) ([]CompanyCount, error) {
	query := `
		SELECT j.company, COUNT(*)
		FROM attempts a
		JOIN jobs j ON j.url = a.job_url
		GROUP BY j.company
		ORDER BY COUNT(*) DESC, j.company
		LIMIT ` + s.placeholder(1)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select top companies: %w", err)
	}
	defer rows.Close()

	var result []CompanyCount
	for rows.Next() {
		var c CompanyCount
		if err := rows.Scan(&c.Company, &c.Attempts); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
