package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aignite/internal/models"
	"aignite/internal/repository"
	"aignite/internal/vision"
)

// ErrJobNotFound indicates the caption job does not exist or belongs to a
// different user.
var ErrJobNotFound = errors.New("caption job not found")

// CaptionService runs video captioning as background jobs, since caption
// generation regularly exceeds a sensible HTTP request deadline.
type CaptionService struct {
	repo       repository.CaptionJobRepository
	provider   vision.Provider
	logger     *zap.Logger
	jobTimeout time.Duration
	wg         sync.WaitGroup
}

func NewCaptionService(repo repository.CaptionJobRepository, provider vision.Provider, logger *zap.Logger) *CaptionService {
	return &CaptionService{
		repo:       repo,
		provider:   provider,
		logger:     logger,
		jobTimeout: 10 * time.Minute,
	}
}

// Enqueue records a pending job and starts processing it in the background.
// The video bytes live only in memory for the lifetime of the job.
func (s *CaptionService) Enqueue(ctx context.Context, userID int64, fileName, mimeType string, data []byte) (*models.CaptionJob, error) {
	job := &models.CaptionJob{
		ID:       uuid.New().String(),
		UserID:   userID,
		Status:   models.CaptionJobPending,
		FileName: fileName,
		MimeType: mimeType,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create caption job: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.process(job.ID, mimeType, data)
	}()

	s.logger.Info("Caption job queued",
		zap.String("job_id", job.ID),
		zap.Int64("user_id", userID),
		zap.String("file", fileName))
	return job, nil
}

// Get returns a job scoped to its owner.
func (s *CaptionService) Get(ctx context.Context, id string, userID int64) (*models.CaptionJob, error) {
	job, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// Wait blocks until all in-flight jobs finish. Used on shutdown.
func (s *CaptionService) Wait() {
	s.wg.Wait()
}

// process runs detached from the originating request, with its own deadline.
func (s *CaptionService) process(jobID, mimeType string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	if err := s.repo.SetProcessing(ctx, jobID); err != nil {
		s.logger.Error("Failed to mark caption job processing",
			zap.String("job_id", jobID), zap.Error(err))
		return
	}

	segments, err := s.provider.CaptionVideo(ctx, data, mimeType)
	if err != nil {
		s.logger.Error("Caption generation failed",
			zap.String("job_id", jobID), zap.Error(err))
		if updateErr := s.repo.SetFailed(ctx, jobID, "caption generation failed"); updateErr != nil {
			s.logger.Error("Failed to mark caption job failed",
				zap.String("job_id", jobID), zap.Error(updateErr))
		}
		return
	}

	provider, _ := s.provider.ModelInfo()
	if err := s.repo.SetCompleted(ctx, jobID, segments, provider); err != nil {
		s.logger.Error("Failed to mark caption job completed",
			zap.String("job_id", jobID), zap.Error(err))
		return
	}

	s.logger.Info("Caption job completed",
		zap.String("job_id", jobID),
		zap.Int("segments", len(segments)))
}
