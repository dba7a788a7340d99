package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/keyhaven/keyhaven-backend/api/routes"
	"github.com/keyhaven/keyhaven-backend/internal/invoices"
	"github.com/keyhaven/keyhaven-backend/internal/orders"
	"github.com/keyhaven/keyhaven-backend/pkg/config"
	"github.com/keyhaven/keyhaven-backend/pkg/logger"
	"github.com/keyhaven/keyhaven-backend/pkg/metrics"
	"github.com/keyhaven/keyhaven-backend/pkg/payments"
	"github.com/keyhaven/keyhaven-backend/pkg/recordstore"
	"github.com/keyhaven/keyhaven-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "keyhaven"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "keyhaven",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reconcilerMetrics := metrics.NewReconcilerMetrics(registry)

	recordStore, err := recordstore.NewClient(context.Background(), cfg.RecordStore, logg, reconcilerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap record store client", err)
		os.Exit(1)
	}

	paymentsClient, err := payments.NewClient(context.Background(), cfg.Payments, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap payments client", err)
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

	ordersService, err := orders.NewService(recordStore, cfg.Payments.Provider, logg, reconcilerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	invoicesService, err := invoices.NewService(paymentsClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoices service", err)
		os.Exit(1)
	}

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
		Handler: routes.NewRouter(cfg, logg, recordStore, redisClient, ordersService, invoicesService, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
