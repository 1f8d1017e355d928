package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/videohub/internal/auth"
	"github.com/utafrali/videohub/internal/domain"
	"github.com/utafrali/videohub/internal/repository"
	"github.com/utafrali/videohub/internal/storage"
	apperrors "github.com/utafrali/videohub/pkg/errors"
)

// Client-facing messages.
const (
	msgAllFieldsRequired  = "All fields are required"
	msgUserExists         = "User with email or username already exists"
	msgAvatarRequired     = "Avatar file is required"
	msgIdentifierRequired = "username or email is required"
	msgUserNotFound       = "user does not exist"
	msgInvalidCredentials = "Invalid user credentials"
	msgUnauthorized       = "unauthorized request"
	msgInvalidRefresh     = "Invalid refresh token"
	msgRefreshUsed        = "Refresh token is expired or used"
	msgTokenGeneration    = "Something went wrong while generating refresh and access token"
	msgInvalidOldPassword = "Invalid old password"
	msgPasswordTooLong    = "password must be at most 72 bytes"
)

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     *FileUpload
	CoverImage *FileUpload
}

// LoginInput identifies a user by username or email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// ChangePasswordInput holds the current and the replacement password.
type ChangePasswordInput struct {
	OldPassword string
	NewPassword string
}

// SessionManager runs registration, login, refresh rotation, logout and
// password changes. The only server-side session state is the single refresh
// token stored on the user record.
type SessionManager struct {
	users  repository.UserRepository
	hasher auth.Hasher
	tokens *auth.TokenManager
	assets storage.Storage
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionManager creates a new session manager.
func NewSessionManager(
	users repository.UserRepository,
	hasher auth.Hasher,
	tokens *auth.TokenManager,
	assets storage.Storage,
	events EventPublisher,
	logger *slog.Logger,
) *SessionManager {
	return &SessionManager{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		assets: assets,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Register creates a new account and returns the sanitized user.
func (s *SessionManager) Register(ctx context.Context, input RegisterInput) (_ *domain.User, err error) {
	defer func() { observe(opRegister, err) }()

	for _, field := range []string{input.FullName, input.Email, input.Username, input.Password} {
		if strings.TrimSpace(field) == "" {
			return nil, apperrors.Validation(msgAllFieldsRequired)
		}
	}

	_, err = s.users.FindByIdentifier(ctx, input.Username, input.Email)
	switch {
	case err == nil:
		return nil, apperrors.Conflict(msgUserExists)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, apperrors.Internal("", err)
	}

	if input.Avatar == nil {
		return nil, apperrors.Validation(msgAvatarRequired)
	}
	avatarURL, uploadErr := uploadAsset(ctx, s.assets, avatarPrefix, input.Avatar)
	if uploadErr != nil {
		s.logger.WarnContext(ctx, "avatar upload failed", slog.String("error", uploadErr.Error()))
	}
	var coverURL string
	if input.CoverImage != nil {
		if coverURL, uploadErr = uploadAsset(ctx, s.assets, coverPrefix, input.CoverImage); uploadErr != nil {
			s.logger.WarnContext(ctx, "cover image upload failed", slog.String("error", uploadErr.Error()))
		}
	}
	if avatarURL == "" {
		return nil, apperrors.Validation(msgAvatarRequired)
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperrors.Validation(msgPasswordTooLong)
		}
		return nil, apperrors.Internal("", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     domain.NormalizeUsername(input.Username),
		Email:        domain.NormalizeEmail(input.Email),
		FullName:     strings.TrimSpace(input.FullName),
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.Conflict(msgUserExists)
		}
		return nil, apperrors.Internal("", err)
	}

	logPublishError(ctx, s.logger, "user.registered", user.ID, s.events.PublishUserRegistered(ctx, user))

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user.Sanitized(), nil
}

// Login verifies credentials, issues a token pair and stores the new refresh
// token, replacing any previous one.
func (s *SessionManager) Login(ctx context.Context, input LoginInput) (_ *domain.Session, err error) {
	defer func() { observe(opLogin, err) }()

	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" && email == "" {
		return nil, apperrors.Validation(msgIdentifierRequired)
	}

	user, err := s.users.FindByIdentifier(ctx, username, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound(msgUserNotFound)
		}
		return nil, apperrors.Internal("", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}

	tokens, err := s.rotate(ctx, user)
	if err != nil {
		return nil, err
	}

	logPublishError(ctx, s.logger, "user.logged_in", user.ID, s.events.PublishUserLoggedIn(ctx, user.ID))

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return &domain.Session{User: user.Sanitized(), Tokens: tokens}, nil
}

// Refresh exchanges the current refresh token for a new pair. A token that
// verifies but is not the one stored for the user is rejected, which makes
// every refresh token single-use.
func (s *SessionManager) Refresh(ctx context.Context, presented string) (_ domain.TokenPair, err error) {
	defer func() { observe(opRefresh, err) }()

	if presented == "" {
		return domain.TokenPair{}, apperrors.Unauthorized(msgUnauthorized)
	}

	claims, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		return domain.TokenPair{}, apperrors.Unauthorized(msgInvalidRefresh).WithCause(err)
	}

	// The stored token is read only after the signature has been checked.
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.TokenPair{}, apperrors.Unauthorized(msgInvalidRefresh)
		}
		return domain.TokenPair{}, apperrors.Internal("", err)
	}

	if !user.HasRefreshToken(presented) {
		s.logger.WarnContext(ctx, "refresh token reuse rejected", slog.String("user_id", user.ID))
		return domain.TokenPair{}, apperrors.Unauthorized(msgRefreshUsed)
	}

	tokens, err := s.rotate(ctx, user)
	if err != nil {
		return domain.TokenPair{}, err
	}

	s.logger.InfoContext(ctx, "tokens refreshed", slog.String("user_id", user.ID))
	return tokens, nil
}

// Logout clears the stored refresh token. A user that no longer exists has
// nothing to clear and is not an error.
func (s *SessionManager) Logout(ctx context.Context, userID string) (err error) {
	defer func() { observe(opLogout, err) }()

	if err = s.users.ClearRefreshToken(ctx, userID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.Internal("", err)
	}

	logPublishError(ctx, s.logger, "user.logged_out", userID, s.events.PublishUserLoggedOut(ctx, userID))

	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", userID))
	return nil
}

// ChangePassword replaces the password after checking the old one. The
// current refresh token stays valid.
func (s *SessionManager) ChangePassword(ctx context.Context, userID string, input ChangePasswordInput) (err error) {
	defer func() { observe(opChangePassword, err) }()

	if input.OldPassword == "" || strings.TrimSpace(input.NewPassword) == "" {
		return apperrors.Validation(msgAllFieldsRequired)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound(msgUserNotFound)
		}
		return apperrors.Internal("", err)
	}

	if !s.hasher.Verify(input.OldPassword, user.PasswordHash) {
		return apperrors.Unauthorized(msgInvalidOldPassword)
	}

	digest, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return apperrors.Validation(msgPasswordTooLong)
		}
		return apperrors.Internal("", err)
	}
	user.PasswordHash = digest

	if err = s.users.Save(ctx, user); err != nil {
		return apperrors.Internal("", err)
	}

	logPublishError(ctx, s.logger, "user.password_changed", user.ID, s.events.PublishPasswordChanged(ctx, user.ID))

	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", user.ID))
	return nil
}

// rotate issues a fresh pair and persists its refresh token on user.
func (s *SessionManager) rotate(ctx context.Context, user *domain.User) (domain.TokenPair, error) {
	tokens, err := s.tokens.IssuePair(user)
	if err != nil {
		return domain.TokenPair{}, apperrors.Internal(msgTokenGeneration, err)
	}

	refresh := tokens.RefreshToken
	user.RefreshToken = &refresh
	if err := s.users.Save(ctx, user); err != nil {
		return domain.TokenPair{}, apperrors.Internal(msgTokenGeneration, err)
	}
	return tokens, nil
}
