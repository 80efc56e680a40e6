package attempts

import (
	"context"

	"github.com/avolkovs/applybot/internal/models"
)

// Repository is the append-only log of application attempts. Attempts are
// never updated or deleted; retries on later runs add new rows.
type Repository interface {
	// Append stores one finished attempt. An empty ID is assigned a UUID.
	Append(ctx context.Context, attempt *models.ApplicationAttempt) error

	// ListByJobURL returns all attempts for the posting, oldest first.
	ListByJobURL(ctx context.Context, jobURL string) ([]models.ApplicationAttempt, error)
}
