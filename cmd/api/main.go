package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/deskcore/helpdesk-service/internal/api/http"
	"github.com/deskcore/helpdesk-service/internal/api/http/handlers"
	"github.com/deskcore/helpdesk-service/internal/config"
	"github.com/deskcore/helpdesk-service/internal/events"
	"github.com/deskcore/helpdesk-service/internal/observability"
	"github.com/deskcore/helpdesk-service/internal/persistence"
	"github.com/deskcore/helpdesk-service/internal/repository"
	"github.com/deskcore/helpdesk-service/internal/routing"
	"github.com/deskcore/helpdesk-service/internal/service"
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	exporter := events.NewKafkaExporter(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	exporter.RegisterHandlers(dispatcher)
	defer exporter.Close() //nolint:errcheck

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	tagRepo := repository.NewTagRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)
	interactionRepo := repository.NewInteractionRepository(pool)
	routingRepo := repository.NewRoutingRepository(pool, tagRepo, teamRepo)

	var locker routing.TicketLocker
	if redis.Client != nil {
		locker = routing.NewRedisLocker(redis.Client, cfg.Routing.LockTTL())
	} else {
		locker = routing.NewLocalLocker()
	}

	router := routing.NewEngine(routing.Dependencies{
		Store:         routingRepo,
		Locker:        locker,
		Dispatcher:    dispatcher,
		Logger:        logger,
		SystemActorID: cfg.Routing.SystemActorID,
	})

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:      ticketRepo,
		TagRepo:         tagRepo,
		TeamRepo:        teamRepo,
		InteractionRepo: interactionRepo,
		Router:          router,
		Dispatcher:      dispatcher,
		Metrics:         metrics,
		Logger:          logger,
	})
	teamService := service.NewTeamService(teamRepo, tagRepo)
	tagService := service.NewTagService(tagRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets: handlers.NewTicketsHandler(ticketService),
		Teams:   handlers.NewTeamsHandler(teamService),
		Tags:    handlers.NewTagsHandler(tagService),
		Metrics: metrics,
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
