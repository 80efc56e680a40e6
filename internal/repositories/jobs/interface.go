package jobs

import (
	"context"

	"github.com/avolkovs/applybot/internal/models"
)

// Repository describes persistence operations for JobRecord objects. The
// posting URL is the unique key across runs.
type Repository interface {
	// Upsert inserts a newly discovered record or refreshes the mutable
	// descriptive fields of an existing one. Status, title, company and
	// discovery time are never overwritten by a re-discovery.
	Upsert(ctx context.Context, job *models.JobRecord) error

	// FindByURL returns the record for the posting URL, or an error wrapping
	// common.ErrNotFound.
	FindByURL(ctx context.Context, url string) (*models.JobRecord, error)

	// UpdateStatus validates the status transition against the lifecycle
	// graph and persists it. Illegal moves return common.ErrIllegalTransition.
	UpdateStatus(ctx context.Context, url string, status models.Status) error

	// ListByStatus returns all records in the given status, oldest first.
	ListByStatus(ctx context.Context, status models.Status) ([]models.JobRecord, error)
}
