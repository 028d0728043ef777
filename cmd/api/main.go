package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/dlfdkwl/discord-tiket/internal/api/http"
	"github.com/dlfdkwl/discord-tiket/internal/api/http/handlers"
	"github.com/dlfdkwl/discord-tiket/internal/auth"
	"github.com/dlfdkwl/discord-tiket/internal/config"
	"github.com/dlfdkwl/discord-tiket/internal/events"
	"github.com/dlfdkwl/discord-tiket/internal/observability"
	"github.com/dlfdkwl/discord-tiket/internal/persistence"
	"github.com/dlfdkwl/discord-tiket/internal/platform"
	"github.com/dlfdkwl/discord-tiket/internal/registry"
	"github.com/dlfdkwl/discord-tiket/internal/repository"
	"github.com/dlfdkwl/discord-tiket/internal/scheduler"
	"github.com/dlfdkwl/discord-tiket/internal/service"
	"github.com/dlfdkwl/discord-tiket/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := persistence.NewBlobStore(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to init blob store", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	settingsRepo := repository.NewSettingsRepository(store, cfg.Storage.SettingsBlob)
	settings := service.NewSettingsService(settingsRepo, logger)
	if err := settings.LoadAll(ctx); err != nil {
		logger.Fatal("failed to load tenant settings", zap.Error(err))
	}

	reg := registry.New()
	gateway := platform.NewGateway(cfg.Gateway)
	dispatcher := events.NewInMemoryDispatcher()

	admission := service.NewAdmission(settings, reg)
	archiver := service.NewArchiveService(gateway, store, logger)
	tickets := service.NewTicketService(service.TicketDependencies{
		Settings:   settings,
		Registry:   reg,
		Admission:  admission,
		Archiver:   archiver,
		Platform:   gateway,
		Dispatcher: dispatcher,
		Scheduler:  scheduler.NewTimerScheduler(),
		Logger:     logger,
		GraceDelay: cfg.Tickets.DeleteGrace(),
	})

	notifications := service.NewNotificationService(dispatcher, settings, gateway, logger)
	worker.StartNotificationWorker(notifications)

	var historyRepo repository.HistoryRepository
	if pool := pg.PoolHandle(); pool != nil {
		historyRepo = repository.NewHistoryRepository(pool)
		worker.StartHistoryRecorder(dispatcher, historyRepo, logger)
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokenManager)

	secretHash := ""
	if cfg.Auth.StaffSecret != "" {
		secretHash, err = auth.HashSecret(cfg.Auth.StaffSecret, cfg.Auth.BcryptCost)
		if err != nil {
			logger.Fatal("failed to hash staff secret", zap.Error(err))
		}
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, store, cfg.Storage.SettingsBlob, pg),
		Auth:           handlers.NewAuthHandler(tokenManager, secretHash),
		Settings:       handlers.NewSettingsHandler(settings, dispatcher),
		Tickets:        handlers.NewTicketsHandler(tickets, historyRepo, logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
