package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marcaromas/marcaromas-backend/internal/catalog"
	"github.com/marcaromas/marcaromas-backend/internal/cron"
	"github.com/marcaromas/marcaromas-backend/internal/history"
	"github.com/marcaromas/marcaromas-backend/internal/orders"
	"github.com/marcaromas/marcaromas-backend/internal/subscriptions"
	"github.com/marcaromas/marcaromas-backend/internal/users"
	"github.com/marcaromas/marcaromas-backend/pkg/config"
	"github.com/marcaromas/marcaromas-backend/pkg/db"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/mercadopago"
	"github.com/marcaromas/marcaromas-backend/pkg/metrics"
	"github.com/marcaromas/marcaromas-backend/pkg/migrate"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox"
	"github.com/marcaromas/marcaromas-backend/pkg/redis"
)

const lockKeyFormat = "ma:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := mercadopago.NewClient(cfg.MercadoPago.AccessToken,
		mercadopago.WithBaseURL(cfg.MercadoPago.BaseURL),
		mercadopago.WithNotifyURL(cfg.MercadoPago.NotifyURL),
		mercadopago.WithMaxRetries(cfg.MercadoPago.MaxRetries),
		mercadopago.WithHTTPClient(&http.Client{Timeout: cfg.MercadoPago.Timeout}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway client", err)
		os.Exit(1)
	}

	historyRepo := history.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	subscriptionsRepo := subscriptions.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	ordersService, err := orders.NewService(ordersRepo, historyRepo, dbClient, outboxService, gateway, cfg.Orders, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	subscriptionsService, err := subscriptions.NewService(
		subscriptionsRepo,
		historyRepo,
		catalog.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
		cfg.Billing,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	billingJob, err := cron.NewBillingTickJob(cron.BillingTickJobParams{
		Repo:    subscriptionsRepo,
		Service: subscriptionsService,
		Gateway: gateway,
		Users:   users.NewRepository(dbClient.DB()),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing tick job", err)
		os.Exit(1)
	}

	pendingJob, err := cron.NewPendingPaymentJob(cron.PendingPaymentJobParams{
		Repo:    ordersRepo,
		Orders:  ordersService,
		Gateway: gateway,
		Logger:  logg,
		Config:  cfg.Orders,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pending payment job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(billingJob, pendingJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Billing.TickInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
