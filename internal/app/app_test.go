package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/videohub/internal/config"
	"github.com/utafrali/videohub/internal/repository/cache"
	pkgconfig "github.com/utafrali/videohub/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:        "development",
		LogLevel:           "error",
		Version:            "test",
		HTTPPort:           0,
		CORSAllowedOrigins: []string{"*"},
		MaxUploadBytes:     1 << 20,
		AccessTokenSecret:  "app-test-access-secret",
		AccessTokenExpiry:  pkgconfig.Duration(15 * time.Minute),
		RefreshTokenSecret: "app-test-refresh-secret",
		RefreshTokenExpiry: pkgconfig.Duration(240 * time.Hour),
		TokenIssuer:        "videohub-account",
		BcryptCost:         4,
		StoreBackend:       config.StoreBackendMemory,
		StorageBackend:     config.StorageBackendMemory,
		AssetBaseURL:       "http://assets.test",
		ProfileCacheTTL:    time.Minute,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func register(t *testing.T, h http.Handler) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{"fullname": "Bob", "email": "bob@example.com", "username": "bob", "password": "p1"} {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("avatar", "bob.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewBufferString(`{"username":"bob","password":"p1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env struct {
		Data struct {
			User struct {
				ID string `json:"_id"`
			} `json:"user"`
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data.AccessToken
}

func currentUser(t *testing.T, h http.Handler, token string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data
}

func TestNewApp_InMemoryBackends(t *testing.T) {
	a, err := NewApp(testConfig(), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	h := a.Handler()
	register(t, h)
	token := login(t, h)
	assert.Equal(t, "bob", currentUser(t, h, token)["username"])

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewApp_RedisProfileCache(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.RedisEnabled = true
	cfg.RedisHost = mr.Host()
	cfg.RedisPort = port

	a, err := NewApp(cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	h := a.Handler()
	register(t, h)
	token := login(t, h)
	user := currentUser(t, h, token)

	assert.True(t, mr.Exists(cache.Key(user["_id"].(string))), "gate lookup should populate the profile cache")
}

func TestNewApp_UnreachableRedisFails(t *testing.T) {
	cfg := testConfig()
	cfg.RedisEnabled = true
	cfg.RedisHost = "127.0.0.1"
	cfg.RedisPort = 1

	_, err := NewApp(cfg, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestRun_StopsOnCancel(t *testing.T) {
	a, err := NewApp(testConfig(), discardLogger())
	require.NoError(t, err)
	a.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
