package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/marcaromas/marcaromas-backend/api/controllers"
	"github.com/marcaromas/marcaromas-backend/api/routes"
	"github.com/marcaromas/marcaromas-backend/internal/auth"
	"github.com/marcaromas/marcaromas-backend/internal/catalog"
	"github.com/marcaromas/marcaromas-backend/internal/checkout"
	"github.com/marcaromas/marcaromas-backend/internal/history"
	"github.com/marcaromas/marcaromas-backend/internal/notifications"
	"github.com/marcaromas/marcaromas-backend/internal/orders"
	"github.com/marcaromas/marcaromas-backend/internal/reconciler"
	"github.com/marcaromas/marcaromas-backend/internal/reporting"
	"github.com/marcaromas/marcaromas-backend/internal/subscriptions"
	"github.com/marcaromas/marcaromas-backend/internal/users"
	"github.com/marcaromas/marcaromas-backend/pkg/auth/session"
	"github.com/marcaromas/marcaromas-backend/pkg/config"
	"github.com/marcaromas/marcaromas-backend/pkg/db"
	"github.com/marcaromas/marcaromas-backend/pkg/logger"
	"github.com/marcaromas/marcaromas-backend/pkg/mercadopago"
	"github.com/marcaromas/marcaromas-backend/pkg/migrate"
	"github.com/marcaromas/marcaromas-backend/pkg/outbox"
	"github.com/marcaromas/marcaromas-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

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

	catalogRepo := catalog.NewRepository(dbClient.DB())
	historyRepo := history.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ordersService, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		historyRepo,
		dbClient,
		outboxService,
		gateway,
		cfg.Orders,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	subscriptionsService, err := subscriptions.NewService(
		subscriptions.NewRepository(dbClient.DB()),
		historyRepo,
		catalogRepo,
		dbClient,
		outboxService,
		cfg.Billing,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	signupService, err := subscriptions.NewSignupService(catalogRepo, userRepo, gateway, subscriptionsService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription signup service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		orders.NewRepository(dbClient.DB()),
		catalogRepo,
		historyRepo,
		userRepo,
		ordersService,
		gateway,
		dbClient,
		outboxService,
		cfg.Shipping,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	reconcilerService, err := reconciler.NewService(
		gateway,
		ordersService,
		subscriptionsService,
		subscriptions.NewRepository(dbClient.DB()),
		reconciler.NewDeadLetterRepository(dbClient.DB()),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment reconciler", err)
		os.Exit(1)
	}

	reportingService, err := reporting.NewService(reporting.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create reporting service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:  cfg,
		Logger:  logg,
		Redis:   redisClient,
		Session: sessionManager,
		Readiness: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		AuthService:   authService,
		Register:      registerService,
		Catalog:       catalogRepo,
		Checkout:      checkoutService,
		Orders:        ordersService,
		Subscriptions: subscriptionsService,
		Signup:        signupService,
		Notifications: notificationsService,
		Reconciler:    reconcilerService,
		Reporting:     reportingService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
