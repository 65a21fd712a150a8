package main

import (
	"context"
	"discussion/infra/memory"
	"discussion/infra/postgres"
	"discussion/infra/rabbitmq"
	"discussion/internal/consumers"
	"discussion/pkg/config"
	"discussion/pkg/events"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, _ := zapConfig.Build()
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	zap.L().Info("Discussion Worker Service starting...")

	appConfig := config.Read()
	zap.L().Info("Worker config loaded",
		zap.String("serviceName", appConfig.ServiceName),
		zap.String("storeDriver", appConfig.StoreDriver),
	)

	if appConfig.RabbitMQURL == "" {
		zap.L().Fatal("RABBITMQ_URL is required for worker service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store consumers.NotificationStore
	if appConfig.StoreDriver == config.StoreDriverMemory {
		zap.L().Warn("Using in-memory notification store; notifications are lost on restart")
		store = memory.NewRepository()
	} else {
		pgRepository := postgres.NewPgRepository(appConfig.PostgresDSN())
		defer pgRepository.Close()
		store = pgRepository
		go monitorPool(ctx, pgRepository)
	}

	notificationHandler := consumers.NewNotificationEventHandler(store, zap.L())

	notificationConsumerConfig := rabbitmq.ConsumerConfig{
		Exchange:       events.NotificationExchange,
		QueueName:      events.NotificationExchange + ".all.v1",
		RoutingKeys:    []string{"notification.*.v1"},
		ServiceName:    appConfig.ServiceName,
		PrefetchCount:  10,
		WorkerPoolSize: 20,
	}

	notificationConsumer, err := rabbitmq.NewConsumer(appConfig.RabbitMQURL, notificationConsumerConfig)
	if err != nil {
		zap.L().Fatal("Failed to create notification consumer", zap.Error(err))
	}
	defer notificationConsumer.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		zap.L().Info("Starting notification event consumer...")
		if err := notificationConsumer.Consume(ctx, notificationHandler.HandleEvent); err != nil {
			if !errors.Is(err, context.Canceled) {
				zap.L().Error("Notification consumer error", zap.Error(err))
			}
		}
	}()

	zap.L().Info("Worker service started successfully. Waiting for events...",
		zap.String("exchange", events.NotificationExchange),
	)

	<-sigChan
	zap.L().Info("Shutdown signal received, stopping worker service...")
	cancel()

	zap.L().Info("Worker service stopped gracefully")
}

func monitorPool(ctx context.Context, pgRepository *postgres.PgRepository) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := pgRepository.GetPoolStats()
			zap.L().Info("Connection pool stats",
				zap.Int("max_open", stats["max_open_connections"].(int)),
				zap.Int("open", stats["open_connections"].(int)),
				zap.Int("in_use", stats["in_use"].(int)),
				zap.Int("idle", stats["idle"].(int)),
				zap.Int64("wait_count", stats["wait_count"].(int64)),
				zap.Int64("wait_duration_ms", stats["wait_duration_ms"].(int64)),
			)
		}
	}
}
