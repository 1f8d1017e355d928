// Package cache decorates a UserRepository with a Redis read-through cache
// for sanitized profiles.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/videohub/internal/domain"
	"github.com/utafrali/videohub/internal/repository"
)

const keyPrefix = "account:profile:"

// UserRepository caches FindProfileByID results. Every write through the
// decorator evicts the user's entry. Redis failures are logged and the call
// falls through to the wrapped repository.
type UserRepository struct {
	repository.UserRepository

	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewUserRepository wraps next with a profile cache.
func NewUserRepository(next repository.UserRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *UserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserRepository{
		UserRepository: next,
		client:         client,
		ttl:            ttl,
		logger:         logger,
	}
}

// Key returns the cache key for a user id.
func Key(id string) string {
	return keyPrefix + id
}

// FindProfileByID reads from Redis and falls back to the wrapped repository.
func (r *UserRepository) FindProfileByID(ctx context.Context, id string) (*domain.User, error) {
	if u, err := r.get(ctx, id); err == nil {
		return u, nil
	} else if !errors.Is(err, redis.Nil) {
		r.logger.WarnContext(ctx, "profile cache read failed", slog.String("user_id", id), slog.String("error", err.Error()))
	}

	u, err := r.UserRepository.FindProfileByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.set(ctx, u)
	return u, nil
}

// Create inserts the user and evicts any stale profile under its id.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	err := r.UserRepository.Create(ctx, u)
	r.evict(ctx, u.ID)
	return err
}

// UpdateByID updates the user and evicts the cached profile.
func (r *UserRepository) UpdateByID(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	u, err := r.UserRepository.UpdateByID(ctx, id, patch)
	r.evict(ctx, id)
	return u, err
}

// Save persists credentials and evicts the cached profile.
func (r *UserRepository) Save(ctx context.Context, u *domain.User) error {
	err := r.UserRepository.Save(ctx, u)
	r.evict(ctx, u.ID)
	return err
}

// ClearRefreshToken clears the token and evicts the cached profile.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	err := r.UserRepository.ClearRefreshToken(ctx, id)
	r.evict(ctx, id)
	return err
}

func (r *UserRepository) get(ctx context.Context, id string) (*domain.User, error) {
	data, err := r.client.Get(ctx, Key(id)).Bytes()
	if err != nil {
		return nil, err
	}
	var u domain.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) set(ctx context.Context, u *domain.User) {
	data, err := json.Marshal(u.Sanitized())
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, Key(u.ID), data, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "profile cache write failed", slog.String("user_id", u.ID), slog.String("error", err.Error()))
	}
}

func (r *UserRepository) evict(ctx context.Context, id string) {
	if err := r.client.Del(ctx, Key(id)).Err(); err != nil {
		r.logger.WarnContext(ctx, "profile cache eviction failed", slog.String("user_id", id), slog.String("error", err.Error()))
	}
}
