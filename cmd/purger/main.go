package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/planora/account-service/internal/core/port"
	"github.com/planora/account-service/internal/infra/config"
	"github.com/planora/account-service/internal/infra/database"
	kafkainfra "github.com/planora/account-service/internal/infra/kafka"
	"github.com/planora/account-service/internal/infra/logger"
	redisinfra "github.com/planora/account-service/internal/infra/redis"
	postgresrepo "github.com/planora/account-service/internal/repository/postgres"
	redisrepo "github.com/planora/account-service/internal/repository/redis"
	"github.com/planora/account-service/internal/usecase"
)

const defaultPurgeBatchSize = 100

// The purger is a one-shot batch job: it purges every deletion request whose
// recovery window has elapsed and exits. Scheduling is left to cron or a
// Kubernetes CronJob.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zlog, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() {
		_ = zlog.Sync()
	}()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Error("purge run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, zlog *zap.Logger) error {
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, zlog)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := redisinfra.NewClient(cfg.Redis, zlog)
	if err != nil {
		return err
	}
	defer func() {
		_ = redisClient.Close()
	}()

	stores := postgresrepo.NewStores(pool)
	statusCache := redisrepo.NewOnboardingStatusRepository(redisClient.Client(), cfg.Redis.OnboardingCachePrefix)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, zlog)
		if err != nil {
			zlog.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(zlog)
		} else {
			defer func() {
				_ = producer.Close()
			}()
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, zlog)
		}
	} else {
		eventPublisher = kafkainfra.NewStubPublisher(zlog)
	}

	lifecycle := usecase.NewDeletionLifecycle(stores.Profiles, stores.Requests, stores.Preferences, stores.Identities, eventPublisher, zlog).
		WithRecoveryWindow(cfg.Deletion.RecoveryWindow()).
		WithIdentityPurge(cfg.Deletion.PurgeIdentity).
		WithStatusCache(statusCache)

	batchSize := cfg.Deletion.PurgeBatchSize
	if batchSize <= 0 {
		batchSize = defaultPurgeBatchSize
	}

	due, err := stores.Requests.ListDue(ctx, time.Now().UTC(), batchSize)
	if err != nil {
		return err
	}

	zlog.Info("purge run started", zap.Int("due", len(due)))

	var purged, failed int
	for _, request := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := lifecycle.Purge(ctx, request.UserID)
		if err != nil {
			// Keep going; a partial failure on one account must not block
			// the rest of the batch.
			failed++
			zlog.Error("purge failed",
				zap.String("request_id", request.ID),
				zap.Error(err),
			)
			continue
		}
		if result.Purged {
			purged++
		}
	}

	zlog.Info("purge run finished",
		zap.Int("due", len(due)),
		zap.Int("purged", purged),
		zap.Int("failed", failed),
	)

	return nil
}
