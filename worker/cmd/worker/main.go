package main

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"imageResizer/worker/cache"
	"imageResizer/worker/config"
	"imageResizer/worker/converter"
	"imageResizer/worker/kafka"
	"imageResizer/worker/logging"
	"imageResizer/worker/pool"
	"imageResizer/worker/repository"
	"imageResizer/worker/service"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("Falling back to default logger", zap.Error(err))
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	logger.Info("Worker Service starting...",
		zap.String("topic", cfg.KafkaTopic),
		zap.Int("workers", cfg.WorkerCount),
		zap.Int("max_in_flight", cfg.MaxInFlight),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	consumer, err := kafka.NewConsumer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaGroupID, logger)
	if err != nil {
		logger.Fatal("Failed to create kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	conv := converter.NewConverter(logger, converter.Options{
		JPEGQuality: cfg.JPEGQuality,
		WebPQuality: cfg.WebPQuality,
	})
	coordinator := service.NewCoordinator(conv, service.NewLogObserver(logger), logger, cfg.MaxInFlight)
	processor := service.NewProcessor(
		repository.NewPostgresRepo(db),
		cache.NewStatusCache(redisClient),
		coordinator,
		logger,
	)

	batches := pool.NewWorkerPool(cfg.WorkerCount)
	err = consumer.Consume(ctx, cfg.KafkaTopic, func(ctx context.Context, msg *kafka.BatchMessage) error {
		return batches.Go(ctx, func(ctx context.Context) {
			if err := processor.Process(ctx, msg); err != nil {
				logger.Error("Failed to process batch",
					zap.String("batch_id", msg.BatchID),
					zap.Error(err),
				)
			}
		})
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", zap.Error(err))
	}

	logger.Info("Waiting for running batches to finish")
	batches.Wait()
	logger.Info("Worker Service stopped")
}
