package repository

import (
	"context"

	"github.com/utafrali/videohub/internal/domain"
)

// UserRepository is the credential store. Implementations return errors
// wrapping apperrors.ErrNotFound for missing users and apperrors.ErrConflict
// when a username or email is already taken. Username and email are compared
// case-insensitively.
type UserRepository interface {
	// Create inserts a new user. ID and timestamps must already be set.
	Create(ctx context.Context, user *domain.User) error

	// FindByID returns the full record, credentials included.
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// FindProfileByID returns the user without password digest or refresh token.
	FindProfileByID(ctx context.Context, id string) (*domain.User, error)

	// FindByIdentifier returns the user whose username equals username or
	// whose email equals email. Empty arguments never match.
	FindByIdentifier(ctx context.Context, username, email string) (*domain.User, error)

	// UpdateByID applies patch and returns the sanitized result.
	UpdateByID(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)

	// Save persists the credential fields of user: password digest and refresh token.
	Save(ctx context.Context, user *domain.User) error

	// ClearRefreshToken unsets the stored refresh token.
	ClearRefreshToken(ctx context.Context, id string) error
}
