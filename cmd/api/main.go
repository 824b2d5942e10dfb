package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/civicfix/civicfix-server/internal/api/http"
	"github.com/civicfix/civicfix-server/internal/api/http/handlers"
	"github.com/civicfix/civicfix-server/internal/auth"
	"github.com/civicfix/civicfix-server/internal/config"
	"github.com/civicfix/civicfix-server/internal/events"
	"github.com/civicfix/civicfix-server/internal/observability"
	"github.com/civicfix/civicfix-server/internal/persistence"
	"github.com/civicfix/civicfix-server/internal/service"
	"github.com/civicfix/civicfix-server/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	migrate := cfg.Store.Driver == config.StoreMongo || cfg.Postgres.RunMigrations
	store, err := persistence.OpenStore(ctx, cfg, logger, migrate)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = store.Close(closeCtx)
	}()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	reportLimiter := redis.ReportLimiter(cfg.Limits)

	dispatcher := events.NewDispatcher()
	notifier := worker.NewNotificationWorker(service.NewNotificationService(logger, cfg.Notification), logger, 256)
	worker.StartNotificationWorker(ctx, dispatcher, notifier, 2)

	issueService := service.NewIssueService(service.IssueDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
		Limits:     cfg.Limits,
	})
	userService := service.NewUserService(*cfg, store)
	paymentService := service.NewPaymentService(store, issueService, logger)
	statsService := service.NewStatsService(store)
	authMiddleware := auth.NewAuthMiddleware(userService.TokenManager(), store.Repos().Users)

	if cfg.Payments.WebhookSecret == "" {
		logger.Warn("PAYMENT_WEBHOOK_SECRET not provided; payment webhooks will be rejected")
	}

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(cfg.App.Name)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), cfg.App.AllowedOrigins)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Store.Driver, store, redis, metrics),
		Auth:           handlers.NewAuthHandler(userService),
		Issues:         handlers.NewIssuesHandler(issueService),
		Staff:          handlers.NewStaffHandler(issueService),
		Admin:          handlers.NewAdminHandler(issueService, userService, paymentService),
		Payments:       handlers.NewPaymentsHandler(paymentService, cfg.Payments.WebhookSecret, logger),
		Dashboard:      handlers.NewDashboardHandler(statsService),
		AuthMiddleware: authMiddleware,
		ReportLimiter:  reportLimiter,
		Logger:         logger,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	notifier.Stop()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
