package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/videohub/internal/domain"
	apperrors "github.com/utafrali/videohub/pkg/errors"
)

func TestAuthenticate_Success(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "bob", "bob@x.com", "p@ss1")
	s := f.login(t, "bob", "p@ss1")

	got, err := f.gate.Authenticate(context.Background(), s.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "bob", got.Username)
	assert.Empty(t, got.PasswordHash)
	assert.Nil(t, got.RefreshToken)
}

func TestAuthenticate_Rejections(t *testing.T) {
	f := newFixture(t)
	f.register(t, "bob", "bob@x.com", "p@ss1")
	s := f.login(t, "bob", "p@ss1")

	ghost, err := f.tokens.IssueAccess(&domain.User{ID: "ghost", Username: "ghost"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		message string
	}{
		{"missing", "", "unauthorized request"},
		{"malformed", "a.b.c", "Invalid Access Token"},
		{"refresh token presented", s.Tokens.RefreshToken, "Invalid Access Token"},
		{"tampered", tamper(s.Tokens.AccessToken), "Invalid Access Token"},
		{"deleted user", ghost, "Invalid Access Token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.gate.Authenticate(context.Background(), tt.token)
			requireAppError(t, err, apperrors.ErrUnauthorized, tt.message)
		})
	}
}

func TestAuthenticate_ExpiredAccessToken(t *testing.T) {
	f := newFixture(t)
	f.register(t, "bob", "bob@x.com", "p@ss1")
	s := f.login(t, "bob", "p@ss1")

	f.clock.advance(15*time.Minute + time.Second)

	_, err := f.gate.Authenticate(context.Background(), s.Tokens.AccessToken)
	requireAppError(t, err, apperrors.ErrUnauthorized, "Invalid Access Token")
}

func TestAuthenticate_AccessTokenOutlivesLogout(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "bob", "bob@x.com", "p@ss1")
	s := f.login(t, "bob", "p@ss1")

	require.NoError(t, f.sessions.Logout(context.Background(), u.ID))

	// Access tokens are stateless and stay valid until they expire.
	_, err := f.gate.Authenticate(context.Background(), s.Tokens.AccessToken)
	assert.NoError(t, err)
}

func TestAuthenticate_StoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	token, err := f.tokens.IssueAccess(&domain.User{ID: "u-1"})
	require.NoError(t, err)

	repo := &mockUserRepository{}
	repo.On("FindProfileByID", mock.Anything, "u-1").Return(nil, errors.New("pool exhausted"))
	gate := NewAuthGate(repo, f.tokens, newTestLogger())

	_, err = gate.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, apperrors.ErrInternal)
	repo.AssertExpectations(t)
}
