package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/videohub/internal/domain"
	"github.com/utafrali/videohub/internal/service"
	apperrors "github.com/utafrali/videohub/pkg/errors"
	"github.com/utafrali/videohub/pkg/httputil"
	"github.com/utafrali/videohub/pkg/logger"
)

// jsonBodyLimit caps JSON request bodies.
const jsonBodyLimit = 20 << 10

type ctxKey int

const userKey ctxKey = iota

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the user attached by Authenticate.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userKey).(*domain.User)
	return u, ok && u != nil
}

// ContentTypeJSON rejects requests that carry a body which is not JSON.
// Bodyless POSTs, such as logout or a cookie-only refresh, pass through.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.ErrorResponse{
					StatusCode: http.StatusUnsupportedMediaType,
					Message:    "Content-Type must be application/json",
					Errors:     []string{},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// LimitBody caps the request body at n bytes.
func LimitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticator resolves an access token to a user. *service.AuthGate
// satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

var _ Authenticator = (*service.AuthGate)(nil)

// RequestToken extracts the access token: the accessToken cookie first, then
// an Authorization: Bearer header.
func RequestToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > len("Bearer ") && strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return ""
}

// Authenticate guards a route with the auth gate and attaches the user to
// the request context and the request logger.
func Authenticate(gate Authenticator, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := gate.Authenticate(r.Context(), RequestToken(r))
			if err != nil {
				httputil.WriteError(w, r, err, l)
				return
			}

			ctx := WithUser(r.Context(), user)
			trace.SpanFromContext(ctx).SetAttributes(attribute.String("enduser.id", user.ID))
			ctx = logger.WithUserID(ctx, user.ID)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("user_id", user.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// currentUser returns the gated user or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request, l *slog.Logger) (*domain.User, bool) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("unauthorized request"), l)
	}
	return u, ok
}
