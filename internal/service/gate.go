package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/utafrali/videohub/internal/auth"
	"github.com/utafrali/videohub/internal/domain"
	"github.com/utafrali/videohub/internal/repository"
	apperrors "github.com/utafrali/videohub/pkg/errors"
)

const msgInvalidAccessToken = "Invalid Access Token"

// AuthGate resolves an access token to a live, sanitized user.
type AuthGate struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewAuthGate creates a new auth gate.
func NewAuthGate(users repository.UserRepository, tokens *auth.TokenManager, logger *slog.Logger) *AuthGate {
	return &AuthGate{users: users, tokens: tokens, logger: logger}
}

// Authenticate verifies token against the access secret and loads the user it
// names. Every verification failure yields the same Unauthorized error.
func (g *AuthGate) Authenticate(ctx context.Context, token string) (_ *domain.User, err error) {
	defer func() { observe(opAuthenticate, err) }()

	if token == "" {
		return nil, apperrors.Unauthorized(msgUnauthorized)
	}

	claims, err := g.tokens.VerifyAccess(token)
	if err != nil {
		g.logger.DebugContext(ctx, "access token rejected", slog.String("reason", err.Error()))
		return nil, apperrors.Unauthorized(msgInvalidAccessToken)
	}

	user, err := g.users.FindProfileByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(msgInvalidAccessToken)
		}
		return nil, apperrors.Internal("", err)
	}
	return user.Sanitized(), nil
}
