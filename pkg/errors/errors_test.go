package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{ErrValidation, ErrConflict, ErrNotFound, ErrUnauthorized, ErrInternal}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

// --- AppError behavior ---

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	err := Internal("", fmt.Errorf("db connection lost"))
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
	assert.Contains(t, err.Error(), "an internal error occurred")
	assert.Contains(t, err.Error(), "db connection lost")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	err := NotFound("user does not exist")
	assert.Equal(t, "NOT_FOUND: user does not exist", err.Error())
}

func TestAppError_IsMatchesKind(t *testing.T) {
	var err error = Unauthorized("Invalid refresh token")
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestAppError_IsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("login: %w", Conflict("taken"))
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestAppError_UnwrapReachesCause(t *testing.T) {
	cause := errors.New("pool closed")
	err := Internal("", cause)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrInternal))
}

func TestAppError_WithCause(t *testing.T) {
	cause := errors.New("boom")
	err := Validation("Error while uploading avatar").WithCause(cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrValidation)
}

// --- Constructor functions ---

func TestConstructors_StatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		code   string
	}{
		{"validation", Validation("All fields are required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", Conflict("exists"), http.StatusConflict, "CONFLICT"},
		{"not found", NotFound("missing"), http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", Unauthorized("nope"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"internal", Internal("failed", nil), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestValidation_Details(t *testing.T) {
	err := Validation("request validation failed", "email is required", "password is required")
	assert.Equal(t, []string{"email is required", "password is required"}, err.Details)
}

func TestInternal_KeepsExplicitMessage(t *testing.T) {
	err := Internal("Something went wrong while generating refresh and access token", nil)
	assert.Equal(t, "Something went wrong while generating refresh and access token", err.Message)
}

// --- HTTPStatus ---

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", Conflict("x"), http.StatusConflict},
		{"wrapped app error", fmt.Errorf("ctx: %w", Unauthorized("x")), http.StatusUnauthorized},
		{"sentinel not found", fmt.Errorf("find: %w", ErrNotFound), http.StatusNotFound},
		{"sentinel conflict", ErrConflict, http.StatusConflict},
		{"sentinel validation", ErrValidation, http.StatusBadRequest},
		{"sentinel unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "find user")
	assert.Equal(t, "find user: resource not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
}
