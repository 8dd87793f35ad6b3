package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"imageResizer/api/cache"
	"imageResizer/api/config"
	"imageResizer/api/database"
	"imageResizer/api/explorer"
	"imageResizer/api/handlers"
	"imageResizer/api/kafka"
	"imageResizer/api/repository"
	"imageResizer/api/service"
	"imageResizer/worker/converter"
	"imageResizer/worker/logging"
	workerservice "imageResizer/worker/service"
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

	logger.Info("API Service starting",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisCache, err := database.ConnectCache(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisCache.Close()

	producer, err := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","))
	if err != nil {
		logger.Fatal("Failed to create kafka producer", zap.Error(err))
	}
	defer producer.Close()

	conv := converter.NewConverter(logger, converter.Options{
		JPEGQuality: cfg.JPEGQuality,
		WebPQuality: cfg.WebPQuality,
	})
	coordinator := workerservice.NewCoordinator(conv, workerservice.NewLogObserver(logger), logger, cfg.MaxInFlight)

	batchService := service.NewBatchService(
		coordinator,
		repository.NewPostgresRepo(db),
		cache.NewBatchCache(redisCache),
		producer,
		cfg.KafkaTopic,
		logger,
	)
	handler := handlers.NewBatchHandler(batchService, explorer.NewOpener(), logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("API Service stopped")
}
