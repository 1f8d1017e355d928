package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/videohub/internal/domain"
	pkgkafka "github.com/utafrali/videohub/pkg/kafka"
	"github.com/utafrali/videohub/pkg/logger"
)

// Kafka topic constants for account domain events.
const (
	TopicUserRegistered      = "videohub.user.registered"
	TopicUserLoggedIn        = "videohub.user.logged_in"
	TopicUserLoggedOut       = "videohub.user.logged_out"
	TopicUserPasswordChanged = "videohub.user.password_changed"
	TopicUserProfileUpdated  = "videohub.user.profile_updated"
)

// SourceAccountService identifies events originating from this service.
const SourceAccountService = "account-service"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
	Avatar   string `json:"avatar"`
}

// UserSessionData is the payload for user.logged_in and user.logged_out.
type UserSessionData struct {
	UserID string `json:"user_id"`
}

// PasswordChangedData is the payload for a user.password_changed event.
type PasswordChangedData struct {
	UserID string `json:"user_id"`
}

// ProfileUpdatedData is the payload for a user.profile_updated event.
type ProfileUpdatedData struct {
	ID         string   `json:"id"`
	Fields     []string `json:"fields"`
	Email      string   `json:"email"`
	FullName   string   `json:"fullname"`
	Avatar     string   `json:"avatar"`
	CoverImage string   `json:"coverImage"`
}

// Publisher is the transport the producer writes envelopes to.
// *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes account domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer for the account service.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, user.ID, UserRegisteredData{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Avatar:   user.Avatar,
	})
}

// PublishUserLoggedIn publishes a user.logged_in event.
func (p *Producer) PublishUserLoggedIn(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicUserLoggedIn, userID, UserSessionData{UserID: userID})
}

// PublishUserLoggedOut publishes a user.logged_out event.
func (p *Producer) PublishUserLoggedOut(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicUserLoggedOut, userID, UserSessionData{UserID: userID})
}

// PublishPasswordChanged publishes a user.password_changed event.
func (p *Producer) PublishPasswordChanged(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicUserPasswordChanged, userID, PasswordChangedData{UserID: userID})
}

// PublishProfileUpdated publishes a user.profile_updated event listing the
// changed fields.
func (p *Producer) PublishProfileUpdated(ctx context.Context, user *domain.User, fields []string) error {
	return p.publish(ctx, TopicUserProfileUpdated, user.ID, ProfileUpdatedData{
		ID:         user.ID,
		Fields:     fields,
		Email:      user.Email,
		FullName:   user.FullName,
		Avatar:     user.Avatar,
		CoverImage: user.CoverImage,
	})
}

func (p *Producer) publish(ctx context.Context, topic, userID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, userID, SourceAccountService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published account event",
		slog.String("topic", topic),
		slog.String("user_id", userID),
	)
	return nil
}

// Discard is a Publisher that drops every event. It is used when Kafka is disabled.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, string, *pkgkafka.Event) error { return nil }
