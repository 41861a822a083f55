package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/planora/account-service/internal/infra/config"
	"github.com/planora/account-service/internal/infra/telemetry"
	"github.com/planora/account-service/internal/transport/http/handlers"
	"github.com/planora/account-service/internal/transport/http/middleware"
	"github.com/planora/account-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Reconciler  *usecase.StatusReconciler
	Deletion    *usecase.DeletionLifecycle
	EmailChange *usecase.EmailChangeCoordinator
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config           *config.AppConfig
	Logger           *zap.Logger
	Metrics          *middleware.HTTPMetrics
	LifecycleMetrics *telemetry.Metrics
	Services         ServiceSet
	Database         DatabaseChecker
	Cache            CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Config.Auth)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		accountGroup := api.Group("/account")

		deletionHandler := handlers.NewDeletionHandler(deps.Services.Deletion, deps.LifecycleMetrics)
		// Recovery works with the single-use token alone; a user mid-deletion
		// may no longer be able to sign in.
		deletionHandler.RegisterPublic(accountGroup)

		authed := accountGroup.Group("")
		authed.Use(authMiddleware)

		onboardingHandler := handlers.NewOnboardingHandler(deps.Services.Reconciler, deps.LifecycleMetrics)
		onboardingHandler.RegisterRoutes(authed)

		deletionHandler.RegisterAuthenticated(authed)

		emailHandler := handlers.NewEmailHandler(deps.Services.EmailChange, deps.LifecycleMetrics)
		emailHandler.RegisterAuthenticated(authed)
	}

	// Internal surface for the scheduled purger and the identity provider
	// callback. Expected to be reachable only inside the cluster network.
	internal := r.Group("/internal/v1/account")
	{
		purgeHandler := handlers.NewPurgeHandler(deps.Services.Deletion, deps.LifecycleMetrics)
		purgeHandler.RegisterRoutes(internal)

		emailHandler := handlers.NewEmailHandler(deps.Services.EmailChange, deps.LifecycleMetrics)
		emailHandler.RegisterInternal(internal)
	}

	return r
}
