package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/callpool-service/internal/api/http"
	"github.com/spec-kit/callpool-service/internal/api/http/handlers"
	"github.com/spec-kit/callpool-service/internal/auth"
	"github.com/spec-kit/callpool-service/internal/config"
	"github.com/spec-kit/callpool-service/internal/events"
	"github.com/spec-kit/callpool-service/internal/observability"
	"github.com/spec-kit/callpool-service/internal/persistence"
	"github.com/spec-kit/callpool-service/internal/repository"
	"github.com/spec-kit/callpool-service/internal/service"
	"github.com/spec-kit/callpool-service/internal/worker"
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	var itemRepo repository.WorkItemRepository
	var moderatorRepo repository.ModeratorRepository
	if pool != nil {
		itemRepo = repository.NewWorkItemRepository(pool)
		moderatorRepo = repository.NewModeratorRepository(pool)
	} else {
		logger.Warn("running with in-process store; state is not durable")
		itemRepo = repository.NewMemoryWorkItemRepository()
		moderatorRepo = repository.NewMemoryModeratorRepository()
	}

	dispatcher := events.NewInMemoryDispatcher()

	moderatorService := service.NewModeratorService(cfg.Engine, service.ModeratorDependencies{
		ModeratorRepo: moderatorRepo,
		ItemRepo:      itemRepo,
		Dispatcher:    dispatcher,
	})
	allocationService := service.NewAllocationService(cfg.Engine, service.AllocationDependencies{
		ItemRepo:      itemRepo,
		ModeratorRepo: moderatorRepo,
		Dispatcher:    dispatcher,
	})
	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		ItemRepo:   itemRepo,
		Dispatcher: dispatcher,
	})
	poolService := service.NewPoolService(itemRepo)
	reportService := service.NewReportService(cfg.Engine, itemRepo)
	notificationService := service.NewNotificationService(dispatcher, logger, redis, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, moderatorService)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Claims:         handlers.NewClaimsHandler(allocationService, moderatorService),
		Items:          handlers.NewItemsHandler(lifecycleService),
		Admin:          handlers.NewAdminHandler(allocationService, poolService, moderatorService),
		Reports:        handlers.NewReportsHandler(reportService),
		AuthMiddleware: authMiddleware,
		AdminKeyHash:   cfg.Auth.AdminKeyHash,
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
