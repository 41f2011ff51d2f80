package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/opulentlabs/storefront-backend/api/routes"
	"github.com/opulentlabs/storefront-backend/internal/catalog"
	"github.com/opulentlabs/storefront-backend/internal/inventory"
	"github.com/opulentlabs/storefront-backend/internal/notifications"
	"github.com/opulentlabs/storefront-backend/internal/orders"
	"github.com/opulentlabs/storefront-backend/internal/payments"
	"github.com/opulentlabs/storefront-backend/internal/pricing"
	"github.com/opulentlabs/storefront-backend/pkg/config"
	"github.com/opulentlabs/storefront-backend/pkg/db"
	"github.com/opulentlabs/storefront-backend/pkg/env"
	"github.com/opulentlabs/storefront-backend/pkg/logger"
	"github.com/opulentlabs/storefront-backend/pkg/metrics"
	"github.com/opulentlabs/storefront-backend/pkg/migrate"
	"github.com/opulentlabs/storefront-backend/pkg/paystack"
	"github.com/opulentlabs/storefront-backend/pkg/pesapal"
	"github.com/opulentlabs/storefront-backend/pkg/redis"
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

	pesapalClient, err := pesapal.NewClient(cfg.Pesapal, cfg.Payments.GatewayTimeout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pesapal client", err)
		os.Exit(1)
	}

	paystackClient, err := paystack.NewClient(cfg.Paystack, cfg.Payments.GatewayTimeout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	pricingService, err := pricing.NewService(pricing.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	notifier, err := notifications.NewService(notifications.NewMailer(cfg.Resend, logg), cfg.Payments, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	paymentsService, err := payments.NewService(payments.Deps{
		Repo:      orders.NewRepository(dbClient.DB()),
		Catalog:   catalogService,
		Pricing:   pricingService,
		Inventory: inventoryService,
		Notifier:  notifier,
		Pesapal:   pesapalClient,
		Paystack:  paystackClient,
		Tx:        dbClient,
		Metrics:   paymentMetrics,
		Payments:  cfg.Payments,
		BaseURL:   cfg.App.BaseURL,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"pesapal_env": pesapalClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Payments:     paymentsService,
			PromGatherer: registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			_ = server.Close()
		}
	}
}
