package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/planora/account-service/internal/core/port"
	"github.com/planora/account-service/internal/infra/config"
	"github.com/planora/account-service/internal/infra/database"
	"github.com/planora/account-service/internal/infra/identity"
	kafkainfra "github.com/planora/account-service/internal/infra/kafka"
	"github.com/planora/account-service/internal/infra/logger"
	redisinfra "github.com/planora/account-service/internal/infra/redis"
	"github.com/planora/account-service/internal/infra/telemetry"
	postgresrepo "github.com/planora/account-service/internal/repository/postgres"
	redisrepo "github.com/planora/account-service/internal/repository/redis"
	"github.com/planora/account-service/internal/transport/http/middleware"
	"github.com/planora/account-service/internal/transport/http/routes"
	"github.com/planora/account-service/internal/usecase"
)

// Application wires the account service and owns its runtime resources.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	tracer *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	stores := postgresrepo.NewStores(pool)

	statusCache := redisrepo.NewOnboardingStatusRepository(redisClient.Client(), cfg.Redis.OnboardingCachePrefix)
	statusCacheTTL := cfg.Redis.OnboardingCacheTTL
	if statusCacheTTL <= 0 {
		statusCacheTTL = 5 * time.Minute
	}

	emailChangeWindow := cfg.EmailChange.Window
	if emailChangeWindow <= 0 {
		emailChangeWindow = time.Hour
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       emailChangeWindow * 2,
	})

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var verifier port.VerificationSender
	if cfg.EmailChange.ProviderBaseURL != "" {
		verifier = identity.NewProviderClient(cfg.EmailChange.ProviderBaseURL, cfg.EmailChange.ProviderAPIKey, cfg.EmailChange.ProviderTimeout)
	} else {
		log.Info("identity provider not configured, logging verification challenges")
		verifier = identity.NewLoggingSender(log)
	}

	reconciler := usecase.NewStatusReconciler(stores.Identities, stores.Profiles, stores.Preferences, log).
		WithStatusCache(statusCache, statusCacheTTL)

	deletion := usecase.NewDeletionLifecycle(stores.Profiles, stores.Requests, stores.Preferences, stores.Identities, eventPublisher, log).
		WithRecoveryWindow(cfg.Deletion.RecoveryWindow()).
		WithIdentityPurge(cfg.Deletion.PurgeIdentity).
		WithStatusCache(statusCache)

	emailChange := usecase.NewEmailChangeCoordinator(stores.Profiles, verifier, eventPublisher, log).
		WithRateLimit(rateLimitStore, cfg.EmailChange.MaxAttempts, emailChangeWindow)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:           cfg,
		Logger:           log,
		Metrics:          httpMetrics,
		LifecycleMetrics: telemetry.NewMetrics(),
		Database:         pool,
		Cache:            redisClient,
		Services: routes.ServiceSet{
			Reconciler:  reconciler,
			Deletion:    deletion,
			EmailChange: emailChange,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		tracer: tracer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting account API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
