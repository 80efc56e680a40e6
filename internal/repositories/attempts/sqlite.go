package attempts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avolkovs/applybot/internal/dbx"
	"github.com/avolkovs/applybot/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append stores one attempt. Answers are serialized to JSON for audit.
func (r *SQLiteRepository) Append(ctx context.Context, a *models.ApplicationAttempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	answers, err := marshalAnswers(a.Answers)
	if err != nil {
		return err
	}

	query := `INSERT INTO attempts (id, job_url, outcome, step_reached, error_detail, answers, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.JobURL, a.Outcome, a.StepReached, a.ErrorDetail, answers, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}
	return nil
}

// ListByJobURL returns all attempts for the posting, oldest first.
func (r *SQLiteRepository) ListByJobURL(ctx context.Context, jobURL string) ([]models.ApplicationAttempt, error) {
	query := `SELECT id, job_url, outcome, step_reached, error_detail, answers, created_at
			FROM attempts WHERE job_url = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, jobURL)
	if err != nil {
		return nil, fmt.Errorf("failed to select attempts: %w", err)
	}
	defer rows.Close()

	var result []models.ApplicationAttempt
	for rows.Next() {
		var a models.ApplicationAttempt
		var answers string
		if err := rows.Scan(&a.ID, &a.JobURL, &a.Outcome, &a.StepReached,
			&a.ErrorDetail, &answers, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answers), &a.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode answers: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func marshalAnswers(answers []models.QuestionAnswer) (string, error) {
	if answers == nil {
		answers = []models.QuestionAnswer{}
	}
	b, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("failed to encode answers: %w", err)
	}
	return string(b), nil
}
