package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/utafrali/videohub/internal/domain"
	"github.com/utafrali/videohub/internal/repository"
	"github.com/utafrali/videohub/internal/storage"
	apperrors "github.com/utafrali/videohub/pkg/errors"
)

const (
	msgEmailTaken    = "Email is already in use"
	msgAvatarMissing = "Avatar file is missing"
	msgAvatarUpload  = "Error while uploading avatar"
	msgCoverMissing  = "Cover image file is missing"
	msgCoverUpload   = "Error while uploading cover image"
)

// UpdateAccountInput holds the editable account details.
type UpdateAccountInput struct {
	FullName string
	Email    string
}

// ProfileService maintains the non-credential parts of an account.
type ProfileService struct {
	users  repository.UserRepository
	assets storage.Storage
	events EventPublisher
	logger *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(users repository.UserRepository, assets storage.Storage, events EventPublisher, logger *slog.Logger) *ProfileService {
	return &ProfileService{users: users, assets: assets, events: events, logger: logger}
}

// UpdateAccount replaces the display name and email.
func (s *ProfileService) UpdateAccount(ctx context.Context, userID string, input UpdateAccountInput) (*domain.User, error) {
	if strings.TrimSpace(input.FullName) == "" || strings.TrimSpace(input.Email) == "" {
		return nil, apperrors.Validation(msgAllFieldsRequired)
	}
	return s.update(ctx, userID, domain.UserPatch{FullName: &input.FullName, Email: &input.Email}, "fullname", "email")
}

// UpdateAvatar uploads a new avatar and stores its URL.
func (s *ProfileService) UpdateAvatar(ctx context.Context, userID string, file *FileUpload) (*domain.User, error) {
	if file == nil {
		return nil, apperrors.Validation(msgAvatarMissing)
	}
	url, err := uploadAsset(ctx, s.assets, avatarPrefix, file)
	if err != nil {
		s.logger.WarnContext(ctx, "avatar upload failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		return nil, apperrors.Validation(msgAvatarUpload)
	}
	return s.update(ctx, userID, domain.UserPatch{Avatar: &url}, "avatar")
}

// UpdateCoverImage uploads a new cover image and stores its URL.
func (s *ProfileService) UpdateCoverImage(ctx context.Context, userID string, file *FileUpload) (*domain.User, error) {
	if file == nil {
		return nil, apperrors.Validation(msgCoverMissing)
	}
	url, err := uploadAsset(ctx, s.assets, coverPrefix, file)
	if err != nil {
		s.logger.WarnContext(ctx, "cover image upload failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		return nil, apperrors.Validation(msgCoverUpload)
	}
	return s.update(ctx, userID, domain.UserPatch{CoverImage: &url}, "coverImage")
}

func (s *ProfileService) update(ctx context.Context, userID string, patch domain.UserPatch, fields ...string) (*domain.User, error) {
	u, err := s.users.UpdateByID(ctx, userID, patch)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.Conflict(msgEmailTaken)
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound(msgUserNotFound)
		}
		return nil, apperrors.Internal("", err)
	}

	logPublishError(ctx, s.logger, "user.profile_updated", userID, s.events.PublishProfileUpdated(ctx, u, fields))

	s.logger.InfoContext(ctx, "profile updated",
		slog.String("user_id", userID),
		slog.Any("fields", fields),
	)
	return u.Sanitized(), nil
}
