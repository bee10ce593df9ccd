package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/pothole-dashboard/internal/api/http"
	"github.com/spec-kit/pothole-dashboard/internal/api/http/handlers"
	"github.com/spec-kit/pothole-dashboard/internal/config"
	"github.com/spec-kit/pothole-dashboard/internal/dashboard"
	"github.com/spec-kit/pothole-dashboard/internal/feed"
	"github.com/spec-kit/pothole-dashboard/internal/geo"
	"github.com/spec-kit/pothole-dashboard/internal/observability"
	"github.com/spec-kit/pothole-dashboard/internal/persistence"
	"github.com/spec-kit/pothole-dashboard/internal/repository"
	"github.com/spec-kit/pothole-dashboard/internal/routeview"
	"github.com/spec-kit/pothole-dashboard/internal/routing"
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

	metrics := observability.NewMetrics()

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

	ticketRepo := repository.NewTicketRepository(pg.PoolHandle())
	changeFeed := feed.NewRedisFeed(redis.Client, cfg.Feed, logger, metrics)
	routeFetcher := routing.NewClient(cfg.Routing, logger)

	mode := geo.OrderPreserve
	if cfg.Routing.OrderMode == "shortest" {
		mode = geo.OrderNearestNeighbor
	}
	routeLifecycle := routeview.New(routeFetcher, mode, cfg.Routing.Timeout(), logger, metrics)

	board := dashboard.New(dashboard.Dependencies{
		Store:  ticketRepo,
		Feed:   changeFeed,
		Route:  routeLifecycle,
		Logger: logger,
	})
	if err := board.Start(ctx); err != nil {
		logger.Error("change feed subscription failed", zap.Error(err))
	}
	defer board.Close()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets: handlers.NewTicketsHandler(board),
		Route:   handlers.NewRouteHandler(board),
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
