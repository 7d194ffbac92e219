package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"aignite/internal/models"
	"aignite/internal/repository"
)

// ProfileUpdate carries a partial profile change. Nil fields are untouched.
type ProfileUpdate struct {
	Name        *string
	Preferences *models.PreferencesUpdate
}

type UserService interface {
	Profile(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (*models.User, error)
}

type userService struct {
	repo   repository.UserRepository
	logger *zap.Logger
}

func NewUserService(repo repository.UserRepository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

func (s *userService) Profile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("Failed to load user", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies the provided fields on top of the stored record.
// Preferences merge key-by-key in the database, so concurrent partial
// updates on different keys both land.
func (s *userService) UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (*models.User, error) {
	name := update.Name
	if name != nil && *name == "" {
		name = nil
	}

	user, err := s.repo.UpdateProfile(ctx, userID, name, update.Preferences)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("Failed to update user", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("Profile updated", zap.Int64("user_id", userID))
	return user, nil
}
