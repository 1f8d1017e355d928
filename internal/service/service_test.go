package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/videohub/internal/auth"
	"github.com/utafrali/videohub/internal/domain"
	"github.com/utafrali/videohub/internal/event"
	"github.com/utafrali/videohub/internal/repository/memory"
	"github.com/utafrali/videohub/internal/storage"
	memstorage "github.com/utafrali/videohub/internal/storage/memory"
	apperrors "github.com/utafrali/videohub/pkg/errors"
)

var _ EventPublisher = (*event.Producer)(nil)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) FindProfileByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) FindByIdentifier(ctx context.Context, username, email string) (*domain.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) UpdateByID(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Save(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Event Publisher ---

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockEventPublisher) PublishUserLoggedIn(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockEventPublisher) PublishUserLoggedOut(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockEventPublisher) PublishPasswordChanged(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockEventPublisher) PublishProfileUpdated(ctx context.Context, user *domain.User, fields []string) error {
	return m.Called(ctx, user, fields).Error(0)
}

func newPermissivePublisher() *mockEventPublisher {
	m := &mockEventPublisher{}
	for _, method := range []string{"PublishUserRegistered", "PublishUserLoggedIn", "PublishUserLoggedOut", "PublishPasswordChanged"} {
		m.On(method, mock.Anything, mock.Anything).Return(nil).Maybe()
	}
	m.On("PublishProfileUpdated", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// --- Failing asset store ---

type failingStorage struct{}

func (failingStorage) Upload(context.Context, *storage.UploadInput) (*storage.UploadResult, error) {
	return nil, errors.New("bucket unreachable")
}
func (failingStorage) Delete(context.Context, string) error { return errors.New("bucket unreachable") }
func (failingStorage) GetURL(context.Context, string) (string, error) {
	return "", errors.New("bucket unreachable")
}

// --- Test Helpers ---

const (
	testAccessSecret  = "access-secret-for-service-tests-0123"
	testRefreshSecret = "refresh-secret-for-service-tests-0123"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTokenManager(t *testing.T, clock *testClock) *auth.TokenManager {
	t.Helper()
	m, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  testAccessSecret,
		AccessExpiry:  15 * time.Minute,
		RefreshSecret: testRefreshSecret,
		RefreshExpiry: 10 * 24 * time.Hour,
		Issuer:        "videohub-account",
	}, auth.WithClock(clock.now))
	require.NoError(t, err)
	return m
}

type fixture struct {
	sessions *SessionManager
	gate     *AuthGate
	profiles *ProfileService
	users    *memory.UserRepository
	assets   *memstorage.Storage
	events   *mockEventPublisher
	hasher   auth.Hasher
	tokens   *auth.TokenManager
	clock    *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
	users := memory.NewUserRepository()
	assets := memstorage.New("http://assets.test")
	events := newPermissivePublisher()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	tokens := newTestTokenManager(t, clock)
	logger := newTestLogger()

	sessions := NewSessionManager(users, hasher, tokens, assets, events, logger)
	sessions.now = clock.now

	return &fixture{
		sessions: sessions,
		gate:     NewAuthGate(users, tokens, logger),
		profiles: NewProfileService(users, assets, events, logger),
		users:    users,
		assets:   assets,
		events:   events,
		hasher:   hasher,
		tokens:   tokens,
		clock:    clock,
	}
}

func avatarUpload() *FileUpload {
	return &FileUpload{Filename: "me.png", ContentType: "image/png", Size: 4, Data: strings.NewReader("\x89PNG")}
}

func registerInput(username, email, password string) RegisterInput {
	return RegisterInput{
		FullName: "Test " + username,
		Email:    email,
		Username: username,
		Password: password,
		Avatar:   avatarUpload(),
	}
}

func (f *fixture) register(t *testing.T, username, email, password string) *domain.User {
	t.Helper()
	u, err := f.sessions.Register(context.Background(), registerInput(username, email, password))
	require.NoError(t, err)
	return u
}

func (f *fixture) login(t *testing.T, username, password string) *domain.Session {
	t.Helper()
	s, err := f.sessions.Login(context.Background(), LoginInput{Username: username, Password: password})
	require.NoError(t, err)
	return s
}

func requireAppError(t *testing.T, err error, kind error, message string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected *AppError, got %T", err)
	assert.Equal(t, message, appErr.Message)
}

// tamper flips one character inside the token's signature segment.
func tamper(token string) string {
	b := []byte(token)
	i := len(b) - 10
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}
