// Package service holds the account business logic: the session manager,
// the request-time auth gate and profile maintenance.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/utafrali/videohub/internal/domain"
	"github.com/utafrali/videohub/internal/storage"
)

// EventPublisher publishes account lifecycle events. *event.Producer
// satisfies it.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserLoggedIn(ctx context.Context, userID string) error
	PublishUserLoggedOut(ctx context.Context, userID string) error
	PublishPasswordChanged(ctx context.Context, userID string) error
	PublishProfileUpdated(ctx context.Context, user *domain.User, fields []string) error
}

// FileUpload is an image received from a client.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// Asset key prefixes.
const (
	avatarPrefix = "avatars"
	coverPrefix  = "covers"
)

// uploadAsset stores f under prefix and returns its public URL.
func uploadAsset(ctx context.Context, assets storage.Storage, prefix string, f *FileUpload) (string, error) {
	res, err := assets.Upload(ctx, &storage.UploadInput{
		Key:         storage.NewKey(prefix, f.Filename),
		ContentType: f.ContentType,
		Size:        f.Size,
		Data:        f.Data,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", prefix, err)
	}
	return res.URL, nil
}

// logPublishError records a failed event publish; events never fail a request.
func logPublishError(ctx context.Context, l *slog.Logger, topic, userID string, err error) {
	if err == nil {
		return
	}
	l.ErrorContext(ctx, "failed to publish "+topic+" event",
		slog.String("user_id", userID),
		slog.String("error", err.Error()),
	)
}
