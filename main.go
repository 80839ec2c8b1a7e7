package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"portfolio/api/async"
	"portfolio/api/config"
	"portfolio/api/database"
	"portfolio/api/handlers"
	"portfolio/api/logger"
	"portfolio/api/mailer"
	"portfolio/api/metrics"
	"portfolio/api/middleware"
	"portfolio/api/services"
	"portfolio/api/store"
)

const startupTimeout = 30 * time.Second

// backends holds the storage layer chosen at startup and how to release it.
type backends struct {
	events   store.EventStore
	contacts store.ContactStore
	checks   []handlers.HealthCheck
	closers  []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("error loading .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logg, err := logger.New(cfg.App.Env, cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()
	zap.ReplaceGlobals(logg)

	if err := run(cfg, logg); err != nil {
		logg.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg config.Config, logg *zap.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	registry := metrics.NewRegistry()
	m := metrics.New(registry)

	b, err := openBackends(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer b.close()

	limiter, closeLimiter, err := newLimiter(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	mail, err := mailer.New(cfg.Email, logg)
	if err != nil {
		return fmt.Errorf("configure mailer: %w", err)
	}

	queue := async.NewQueue(async.Config{
		Workers:     cfg.Analytics.Workers,
		QueueSize:   cfg.Analytics.QueueSize,
		TaskTimeout: cfg.Analytics.TaskTimeout,
	}, logg, m)

	recorder := services.NewRecorder(b.events, logg, m)
	router, err := handlers.NewRouter(handlers.Deps{
		Config:   cfg,
		Log:      logg,
		Metrics:  m,
		Gatherer: registry,
		Recorder: recorder,
		Stats:    services.NewStatsService(b.events),
		Contacts: services.NewContactService(b.contacts, recorder, mail, cfg.Email.ContactAddress, logg, m),
		Queue:    queue,
		Limiter:  limiter,
		Checks:   b.checks,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info("portfolio API listening",
			zap.Int("port", cfg.App.Port),
			zap.String("environment", cfg.App.Env),
			zap.String("storage", cfg.Storage),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		logg.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("http server forced to shut down", zap.Error(err))
	}
	if err := queue.Shutdown(cfg.App.ShutdownTimeout); err != nil {
		logg.Warn("analytics queue not fully drained", zap.Error(err))
	}

	logg.Info("server exited")
	return nil
}

func openBackends(ctx context.Context, cfg config.Config, logg *zap.Logger) (*backends, error) {
	b := &backends{}
	if cfg.Storage == config.StorageMemory {
		logg.Warn("using in-memory storage, data is lost on restart")
		events, contacts := store.NewMemoryEventStore(), store.NewMemoryContactStore()
		b.events, b.contacts = events, contacts
		b.checks = []handlers.HealthCheck{
			{Name: "events", Ping: events.Ping},
			{Name: "contacts", Ping: contacts.Ping},
		}
		return b, nil
	}

	pg, err := database.NewPostgresDB(ctx, cfg.Postgres, logg)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres: %w", err)
	}
	b.closers = append(b.closers, pg.Close)

	ch, err := database.NewClickHouseDB(ctx, cfg.ClickHouse, cfg.App.Version, logg)
	if err != nil {
		b.close()
		return nil, fmt.Errorf("initialize clickhouse: %w", err)
	}
	b.closers = append(b.closers, ch.Close)

	events := store.NewAnalyticsStore(ch, logg)
	if err := events.EnsureSchema(ctx); err != nil {
		b.close()
		return nil, fmt.Errorf("ensure analytics schema: %w", err)
	}
	contacts := store.NewContactStore(pg.DB, logg)
	if err := contacts.EnsureSchema(ctx); err != nil {
		b.close()
		return nil, fmt.Errorf("ensure contact schema: %w", err)
	}

	b.events, b.contacts = events, contacts
	b.checks = []handlers.HealthCheck{
		{Name: "clickhouse", Ping: events.Ping},
		{Name: "postgres", Ping: contacts.Ping},
	}
	return b, nil
}

// newLimiter prefers Redis so limits hold across instances.
func newLimiter(ctx context.Context, cfg config.Config, logg *zap.Logger) (middleware.Limiter, func(), error) {
	if !cfg.Redis.Enabled() {
		logg.Info("REDIS_ADDR not set, rate limiting per process")
		return middleware.NewMemoryLimiter(cfg.RateLimit.Window), func() {}, nil
	}
	client, err := database.NewRedisClient(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize redis: %w", err)
	}
	return middleware.NewRedisLimiter(client, cfg.RateLimit.Window), func() { closeRedis(client, logg) }, nil
}

func closeRedis(client *redis.Client, logg *zap.Logger) {
	if err := client.Close(); err != nil {
		logg.Warn("error closing redis", zap.Error(err))
	}
}
