package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/marcaromas/marcaromas-backend/internal/reporting"
	"github.com/marcaromas/marcaromas-backend/pkg/bigquery"
	"github.com/marcaromas/marcaromas-backend/pkg/config"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox/idempotency"
	"github.com/marcaromas/marcaromas-backend/pkg/pubsub"
	"github.com/marcaromas/marcaromas-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "reporting-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "reporting-worker"

	logg = logger.New(logger.Options{
		ServiceName: "reporting-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
	requireResource(ctx, logg, "bigquery client", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "failed to close bigquery client", err)
		}
	}()

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	// Order lifecycle and billing events land on separate topics, so the
	// projection runs one consumer per subscription against the same tables.
	orderConsumer, err := reporting.NewConsumer(reporting.ConsumerParams{
		Client:       bqClient,
		OrderTable:   cfg.BigQuery.OrderEventsTable,
		BillingTable: cfg.BigQuery.BillingTable,
		Subscription: pubsubClient.OrdersSubscription(),
		Manager:      manager,
		Logger:       logg,
	})
	requireResource(ctx, logg, "order events consumer", err)

	billingConsumer, err := reporting.NewConsumer(reporting.ConsumerParams{
		Client:       bqClient,
		OrderTable:   cfg.BigQuery.OrderEventsTable,
		BillingTable: cfg.BigQuery.BillingTable,
		Subscription: pubsubClient.BillingSubscription(),
		Manager:      manager,
		Logger:       logg,
	})
	requireResource(ctx, logg, "billing events consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "reporting worker ready")

	errCh := make(chan error, 2)
	go func() {
		errCh <- orderConsumer.Run(runCtx)
	}()
	go func() {
		errCh <- billingConsumer.Run(runCtx)
	}()

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "reporting worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
