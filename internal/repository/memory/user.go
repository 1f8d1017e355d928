// Package memory provides an in-process credential store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/utafrali/videohub/internal/domain"
	apperrors "github.com/utafrali/videohub/pkg/errors"
)

// UserRepository is a mutex-guarded map of users keyed by id.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	now   func() time.Time
}

// NewUserRepository returns an empty store.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User), now: time.Now}
}

// Create inserts a copy of u.
func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.ID]; ok {
		return fmt.Errorf("insert user %s: %w", u.ID, apperrors.ErrConflict)
	}
	username := domain.NormalizeUsername(u.Username)
	email := domain.NormalizeEmail(u.Email)
	for _, existing := range r.users {
		if existing.Username == username || existing.Email == email {
			return fmt.Errorf("insert user %s: %w", username, apperrors.ErrConflict)
		}
	}

	cp := clone(u)
	cp.Username = username
	cp.Email = email
	r.users[cp.ID] = cp
	return nil
}

// FindByID returns a copy of the full record.
func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("find user %s: %w", id, apperrors.ErrNotFound)
	}
	return clone(u), nil
}

// FindProfileByID returns a sanitized copy.
func (r *UserRepository) FindProfileByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Sanitized(), nil
}

// FindByIdentifier matches username or email case-insensitively.
func (r *UserRepository) FindByIdentifier(_ context.Context, username, email string) (*domain.User, error) {
	username = domain.NormalizeUsername(username)
	email = domain.NormalizeEmail(email)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return clone(u), nil
		}
	}
	return nil, fmt.Errorf("find user by identifier: %w", apperrors.ErrNotFound)
}

// UpdateByID applies patch and returns a sanitized copy.
func (r *UserRepository) UpdateByID(_ context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("update user %s: %w", id, apperrors.ErrNotFound)
	}
	if patch.Email != nil {
		email := domain.NormalizeEmail(*patch.Email)
		for otherID, other := range r.users {
			if otherID != id && other.Email == email {
				return nil, fmt.Errorf("update user %s: %w", id, apperrors.ErrConflict)
			}
		}
	}

	patch.Apply(u)
	u.UpdatedAt = r.now().UTC()
	return clone(u).Sanitized(), nil
}

// Save stores the password digest and refresh token of u.
func (r *UserRepository) Save(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[u.ID]
	if !ok {
		return fmt.Errorf("save user %s: %w", u.ID, apperrors.ErrNotFound)
	}
	u.UpdatedAt = r.now().UTC()
	stored.PasswordHash = u.PasswordHash
	stored.RefreshToken = copyString(u.RefreshToken)
	stored.UpdatedAt = u.UpdatedAt
	return nil
}

// ClearRefreshToken unsets the stored refresh token.
func (r *UserRepository) ClearRefreshToken(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("clear refresh token %s: %w", id, apperrors.ErrNotFound)
	}
	u.RefreshToken = nil
	u.UpdatedAt = r.now().UTC()
	return nil
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func clone(u *domain.User) *domain.User {
	cp := *u
	cp.RefreshToken = copyString(u.RefreshToken)
	return &cp
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
