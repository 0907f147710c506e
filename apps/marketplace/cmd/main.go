package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"marketplace/apps/marketplace/internal/api"
	"marketplace/apps/marketplace/internal/config"
	"marketplace/apps/marketplace/internal/event_publisher"
	"marketplace/apps/marketplace/internal/logger"
	"marketplace/apps/marketplace/internal/orders"
	"marketplace/apps/marketplace/internal/repository"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting order backend with configuration",
		zap.Int("api_port", cfg.APIPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("store_driver", cfg.StoreDriver),
		zap.String("db_path", cfg.DbPath),
		zap.String("kafka_broker", cfg.KafkaBroker),
		zap.String("kafka_topic", cfg.KafkaTopic),
		zap.Duration("publish_timeout", cfg.PublishTimeout),
	)

	var store repository.OrderStore
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := sql.Open("postgres", cfg.DbURL)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		store = repository.NewPostgresStore(db, log)
	case config.StoreDriverMemory:
		store = repository.NewMemoryStore()
	default:
		store = repository.NewJSONStore(cfg.DbPath, log)
	}

	// Requests load the store lazily too, so a failure here is not fatal.
	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.EnsureLoaded(initCtx); err != nil {
		log.Error("Failed to initialize order store", zap.Error(err))
	}
	initCancel()

	var publisher orders.Publisher
	if cfg.KafkaBroker != "" {
		eventPublisher, err := event_publisher.NewEventPublisher(cfg.KafkaBroker, cfg.KafkaTopic, log)
		if err != nil {
			log.Fatal("Failed to create event publisher", zap.Error(err))
		}
		defer eventPublisher.Close()
		publisher = eventPublisher
	}

	service := orders.NewService(store, publisher, log).WithPublishTimeout(cfg.PublishTimeout)

	apiServer := api.NewServer(cfg.APIPort, cfg.FrontendURL, service, log)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Fatal("API server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal, starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Stop(ctx); err != nil {
		log.Error("Error shutting down API server", zap.Error(err))
	}

	log.Info("Application shutdown complete")
}
