package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"aignite/internal/models"
)

type CaptionJobRepository interface {
	Create(ctx context.Context, job *models.CaptionJob) error
	GetByID(ctx context.Context, id string, userID int64) (*models.CaptionJob, error)
	SetProcessing(ctx context.Context, id string) error
	SetCompleted(ctx context.Context, id string, segments models.CaptionSegments, provider string) error
	SetFailed(ctx context.Context, id string, reason string) error
}

type captionJobRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewCaptionJobRepository(db *sqlx.DB, logger *zap.Logger) CaptionJobRepository {
	return &captionJobRepository{db: db, logger: logger}
}

func (r *captionJobRepository) Create(ctx context.Context, job *models.CaptionJob) error {
	query := `INSERT INTO caption_jobs (id, user_id, status, file_name, mime_type)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at, updated_at`
	return r.db.QueryRowxContext(ctx, query, job.ID, job.UserID, job.Status, job.FileName, job.MimeType).
		Scan(&job.CreatedAt, &job.UpdatedAt)
}

// GetByID scopes lookups to the owning user so one account cannot read
// another account's jobs.
func (r *captionJobRepository) GetByID(ctx context.Context, id string, userID int64) (*models.CaptionJob, error) {
	var job models.CaptionJob
	query := `SELECT id, user_id, status, file_name, mime_type, segments, error, provider, created_at, updated_at
	          FROM caption_jobs WHERE id = $1 AND user_id = $2`
	if err := r.db.GetContext(ctx, &job, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *captionJobRepository) SetProcessing(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, `UPDATE caption_jobs SET status = $2, updated_at = now() WHERE id = $1`, models.CaptionJobProcessing)
}

func (r *captionJobRepository) SetCompleted(ctx context.Context, id string, segments models.CaptionSegments, provider string) error {
	query := `UPDATE caption_jobs SET status = $2, segments = $3, provider = $4, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, models.CaptionJobCompleted, segments, provider)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *captionJobRepository) SetFailed(ctx context.Context, id string, reason string) error {
	query := `UPDATE caption_jobs SET status = $2, error = $3, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, models.CaptionJobFailed, reason)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *captionJobRepository) setStatus(ctx context.Context, id, query, status string) error {
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
