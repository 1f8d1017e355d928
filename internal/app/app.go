package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/videohub/internal/auth"
	"github.com/utafrali/videohub/internal/config"
	"github.com/utafrali/videohub/internal/event"
	handler "github.com/utafrali/videohub/internal/handler/http"
	"github.com/utafrali/videohub/internal/migrations"
	"github.com/utafrali/videohub/internal/repository"
	"github.com/utafrali/videohub/internal/repository/cache"
	"github.com/utafrali/videohub/internal/repository/memory"
	"github.com/utafrali/videohub/internal/repository/postgres"
	"github.com/utafrali/videohub/internal/service"
	"github.com/utafrali/videohub/internal/storage"
	memstorage "github.com/utafrali/videohub/internal/storage/memory"
	s3storage "github.com/utafrali/videohub/internal/storage/s3"
	"github.com/utafrali/videohub/pkg/database"
	"github.com/utafrali/videohub/pkg/health"
	pkgkafka "github.com/utafrali/videohub/pkg/kafka"
	"github.com/utafrali/videohub/pkg/middleware"
	"github.com/utafrali/videohub/pkg/tracing"
)

const serviceName = "account"

// App wires together all dependencies and runs the account service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Optional backends (postgres, redis, kafka, s3) are only dialled when
// configured; a partially built App is closed before returning an error.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.closeBackends()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()

	users, err := a.initStore(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	// Profile cache in front of the credential store.
	if cfg.RedisEnabled {
		a.redis, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
		users = cache.NewUserRepository(users, a.redis, cfg.ProfileCacheTTL, logger)
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}

	// Domain events.
	var publisher event.Publisher = event.Discard{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
		}, logger)
		publisher = a.producer
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	events := event.NewProducer(publisher, logger)

	assets, err := a.initAssets(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		AccessExpiry:  cfg.AccessTokenExpiry.Std(),
		RefreshSecret: cfg.RefreshTokenSecret,
		RefreshExpiry: cfg.RefreshTokenExpiry.Std(),
		Issuer:        cfg.TokenIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	// Build the dependency graph.
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	sessions := service.NewSessionManager(users, hasher, tokens, assets, events, logger)
	profiles := service.NewProfileService(users, assets, events, logger)
	gate := service.NewAuthGate(users, tokens, logger)

	router := handler.NewRouter(sessions, profiles, gate, healthHandler, logger, handler.RouterConfig{
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			ExposedHeaders:   []string{middleware.CorrelationHeader},
			AllowCredentials: true,
		},
		Cookies: handler.CookieConfig{
			Secure:        cfg.CookieSecure,
			Domain:        cfg.CookieDomain,
			SameSite:      http.SameSiteLaxMode,
			AccessMaxAge:  cfg.AccessTokenExpiry.Std(),
			RefreshMaxAge: cfg.RefreshTokenExpiry.Std(),
		},
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// initStore opens the configured credential store.
func (a *App) initStore(ctx context.Context, hh *health.Handler) (repository.UserRepository, error) {
	if a.cfg.StoreBackend == config.StoreBackendMemory {
		a.logger.Warn("using in-memory credential store; accounts are lost on restart")
		return memory.NewUserRepository(), nil
	}

	pool, err := database.NewPostgresPool(ctx, a.cfg.Postgres(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", a.cfg.PostgresHost),
		slog.Int("port", a.cfg.PostgresPort),
		slog.String("database", a.cfg.PostgresDB),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	hh.RegisterCritical("postgres", pool.Ping)
	return postgres.NewUserRepository(pool, database.NewQueryTracer(a.cfg.SlowQueryThreshold(), a.logger)), nil
}

// initAssets builds the asset store behind a circuit breaker.
func (a *App) initAssets(ctx context.Context, hh *health.Handler) (storage.Storage, error) {
	var backend storage.Storage
	switch a.cfg.StorageBackend {
	case config.StorageBackendS3:
		s3, err := s3storage.New(ctx, s3storage.Config{
			Bucket:        a.cfg.S3Bucket,
			Region:        a.cfg.S3Region,
			Endpoint:      a.cfg.S3Endpoint,
			AccessKey:     a.cfg.S3AccessKey,
			SecretKey:     a.cfg.S3SecretKey,
			UsePathStyle:  a.cfg.S3UsePathStyle,
			PublicBaseURL: a.cfg.AssetBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		hh.RegisterNonCritical("s3", s3.Ping)
		backend = s3
	default:
		backend = memstorage.New(a.cfg.AssetBaseURL)
	}
	a.logger.Info("asset storage initialized", slog.String("backend", a.cfg.StorageBackend))

	return storage.NewBreaker(backend, storage.DefaultBreakerConfig("assets"), a.logger), nil
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.closeBackends()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer, Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeBackends(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeBackends() error {
	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return errors.Join(errs...)
}
