package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/tracklane/ticket-tracker/internal/api/http"
	"github.com/tracklane/ticket-tracker/internal/api/http/handlers"
	"github.com/tracklane/ticket-tracker/internal/config"
	"github.com/tracklane/ticket-tracker/internal/domain"
	"github.com/tracklane/ticket-tracker/internal/observability"
	"github.com/tracklane/ticket-tracker/internal/persistence"
	"github.com/tracklane/ticket-tracker/internal/repository"
	"github.com/tracklane/ticket-tracker/internal/repository/memory"
	"github.com/tracklane/ticket-tracker/internal/service"
	"github.com/tracklane/ticket-tracker/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var envFiles []string
	var migrateOnly bool

	flagSet := pflag.NewFlagSet("ticket-tracker", pflag.ContinueOnError)
	flagSet.StringArrayVar(&envFiles, "env-file", nil, "env file to load before reading the environment (repeatable, default .env)")
	flagSet.BoolVar(&migrateOnly, "migrate-only", false, "apply database migrations and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("invalid flags: %v", err)
	}

	cfg, err := config.Load(envFiles...)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger, migrateOnly); err != nil {
		logger.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger, migrateOnly bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if migrateOnly && !pg.Enabled() {
		return errors.New("--migrate-only requires POSTGRES_DSN")
	}
	if migrateOnly || cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, migrations.Files, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}
	if migrateOnly {
		return nil
	}

	defaults := service.TicketDefaults{
		Status: domain.TicketStatus(cfg.Tickets.DefaultStatus),
		Type:   domain.TicketType(cfg.Tickets.DefaultType),
	}
	if !defaults.Status.Valid() || !defaults.Type.Valid() {
		return fmt.Errorf("invalid ticket defaults: status=%q type=%q", defaults.Status, defaults.Type)
	}

	var store repository.Store
	if pg.Enabled() {
		store = repository.NewPostgresStore(pg.Pool)
	} else {
		store = memory.New()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	cache := repository.NewRedisTicketCache(redis.ClientHandle(), cfg.Redis.TicketTTL, logger)

	paging := service.Paging{DefaultSize: cfg.Tickets.DefaultPageSize, MaxSize: cfg.Tickets.MaxPageSize}
	assignments := service.NewAssignmentService(service.AssignmentDependencies{Store: store, Cache: cache})
	tickets := service.NewTicketService(service.TicketDependencies{
		Store:       store,
		Cache:       cache,
		Assignments: assignments,
		Defaults:    defaults,
		Paging:      paging,
	})
	users := service.NewUserService(service.UserDependencies{Store: store, Assignments: assignments, Paging: paging})
	history := service.NewHistoryService(store)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Tickets: handlers.NewTicketsHandler(tickets, history),
		Users:   handlers.NewUsersHandler(users, assignments),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.Bool("postgres", pg.Enabled()), zap.Bool("redis", redis.Enabled()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber listen: %w", err)
	case sig := <-shutdownSignal():
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}
	return app.ShutdownWithTimeout(shutdownTimeout)
}

func shutdownSignal() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
