package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/videohub/internal/service"
	"github.com/utafrali/videohub/pkg/health"
	"github.com/utafrali/videohub/pkg/middleware"
)

const serviceName = "account"

// RouterConfig carries the HTTP surface settings.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	Cookies        CookieConfig
	MaxUploadBytes int64
}

// NewRouter creates a chi router with all account service routes registered.
func NewRouter(
	sessions *service.SessionManager,
	profiles *service.ProfileService,
	gate Authenticator,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	authHandler := NewAuthHandler(sessions, cfg.Cookies, logger)
	userHandler := NewUserHandler(profiles, logger)
	uploadLimit := LimitBody(cfg.MaxUploadBytes)
	jsonLimit := LimitBody(jsonBodyLimit)

	r.Route("/api/v1/users", func(r chi.Router) {
		// Public
		r.With(uploadLimit).Post("/register", authHandler.Register)
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON, jsonLimit)

			r.Post("/login", authHandler.Login)
			r.Post("/refresh-token", authHandler.RefreshToken)
		})

		// Gated
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(gate, logger))

			r.Group(func(r chi.Router) {
				r.Use(ContentTypeJSON, jsonLimit)

				r.Post("/logout", authHandler.Logout)
				r.Post("/change-password", authHandler.ChangePassword)
				r.Get("/current-user", userHandler.CurrentUser)
				r.Patch("/update-account", userHandler.UpdateAccount)
			})

			r.With(uploadLimit).Patch("/avatar", userHandler.UpdateAvatar)
			r.With(uploadLimit).Patch("/cover-image", userHandler.UpdateCoverImage)
		})
	})

	return r
}
