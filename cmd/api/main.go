package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/triagehq/request-triage/internal/api/http"
	"github.com/triagehq/request-triage/internal/api/http/handlers"
	"github.com/triagehq/request-triage/internal/auth"
	"github.com/triagehq/request-triage/internal/classifier"
	"github.com/triagehq/request-triage/internal/config"
	"github.com/triagehq/request-triage/internal/events"
	"github.com/triagehq/request-triage/internal/observability"
	"github.com/triagehq/request-triage/internal/persistence"
	"github.com/triagehq/request-triage/internal/repository"
	"github.com/triagehq/request-triage/internal/service"
	"github.com/triagehq/request-triage/internal/sla"
	"github.com/triagehq/request-triage/internal/worker"
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

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		ticketRepo   repository.TicketRepository
		commentRepo  repository.CommentRepository
		activityRepo repository.ActivityRepository
		userRepo     repository.UserRepository
	)
	if pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		commentRepo = repository.NewCommentRepository(pool)
		activityRepo = repository.NewActivityRepository(pool)
		userRepo = repository.NewUserRepository(pool)
	} else {
		store := repository.NewMemoryStore()
		ticketRepo = store.Tickets()
		commentRepo = store.Comments()
		activityRepo = store.Activity()
		userRepo = store.Users()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	policy := sla.NewPolicy(cfg.SLA)
	verifier := auth.NewAdminVerifier(cfg.Admin)

	var clf classifier.Classifier
	if adapter := classifier.NewOpenAIClassifier(cfg.Classifier); adapter != nil {
		clf = adapter
	} else {
		logger.Warn("OPENAI_API_KEY not set; classifier fallback applies to every submission")
	}

	identityService := service.NewIdentityService(userRepo, logger)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		CommentRepo:  commentRepo,
		ActivityRepo: activityRepo,
		Identity:     identityService,
		Classifier:   clf,
		SLAPolicy:    policy,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	analyticsService := service.NewAnalyticsService(ticketRepo, policy, redis.ClientHandle(), cfg.Analytics.CacheTTL(), logger)
	adminService := service.NewAdminService(userRepo, verifier, dispatcher, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.StartNotificationWorker(notificationService)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:     handlers.NewTicketsHandler(ticketService),
		Analytics:   handlers.NewAnalyticsHandler(analyticsService),
		Identity:    handlers.NewIdentityHandler(identityService),
		Admin:       handlers.NewAdminHandler(adminService),
		CORSOrigins: cfg.App.CORSOrigins,
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
