// Command aidocd runs the documentation-generation backend: the HTTP API,
// the bounded worker pool, and the startup recovery sweep.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codecraft/aidoc/pkg/api"
	"github.com/codecraft/aidoc/pkg/config"
	"github.com/codecraft/aidoc/pkg/core"
	"github.com/codecraft/aidoc/pkg/dispatch"
	"github.com/codecraft/aidoc/pkg/generate"
	"github.com/codecraft/aidoc/pkg/jobs"
	"github.com/codecraft/aidoc/pkg/metrics"
	"github.com/codecraft/aidoc/pkg/ratelimit"
	"github.com/codecraft/aidoc/pkg/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(*configPath, log); err != nil {
		log.Error("aidocd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, log *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	metrics.Register()

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	store, err := storage.NewGormStoreWithPool(db)
	if err != nil {
		return fmt.Errorf("configure store: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	dispatcher := dispatch.New(store, buildGenerator(cfg.Provider),
		dispatch.WithConcurrency(cfg.Worker.Concurrency),
		dispatch.WithQueueCapacity(cfg.Worker.QueueCapacity),
		dispatch.WithGenerateTimeout(cfg.Worker.GenerateTimeout()),
		dispatch.WithSweep(cfg.Worker.SweepSpec, cfg.Worker.SweepAge()),
		dispatch.WithGenerationStore(store),
	)
	go func() { _ = dispatcher.Start(ctx) }()

	// Unfinished jobs from a previous process re-enter the pool before any
	// new submission is accepted.
	if _, err := dispatcher.Recover(ctx); err != nil {
		return fmt.Errorf("recover unfinished jobs: %w", err)
	}

	limiter, localLimiter := buildLimiter(cfg.Redis, log)
	defer localLimiter.Stop()

	service := jobs.NewService(store, store, dispatcher)
	handler := api.New(service, limiter, api.Quota{
		Limit:  cfg.Quota.Limit,
		Window: cfg.Quota.Window(),
	})

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("aidocd listening", "addr", cfg.Listen, "provider", cfg.Provider.Name)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openDatabase(cfg config.Database) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	switch cfg.Driver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), gormCfg)
	case "sqlite", "":
		return gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func buildGenerator(cfg config.Provider) core.Generator {
	if cfg.Name == "deepseek" {
		return generate.NewChain(
			generate.NewDeepSeek(generate.DeepSeekConfig{
				BaseURL: cfg.BaseURL,
				APIKey:  cfg.APIKey,
				Model:   cfg.Model,
				Timeout: cfg.Timeout(),
			}),
			generate.NewStatic(),
		)
	}
	return generate.NewStatic()
}

func buildLimiter(cfg config.Redis, log *slog.Logger) (ratelimit.Limiter, *ratelimit.LocalLimiter) {
	local := ratelimit.NewLocalLimiter()
	var shared *ratelimit.RedisLimiter
	if cfg.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		shared = ratelimit.NewRedisLimiter(client)
		log.Info("shared rate limiter enabled", "addr", cfg.Addr)
	}
	return ratelimit.NewFallback(shared, local), local
}
