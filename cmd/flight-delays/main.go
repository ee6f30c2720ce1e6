package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/i474232898/flight-delays/internal/api/http"
	"github.com/i474232898/flight-delays/internal/config"
	"github.com/i474232898/flight-delays/internal/delays"
	"github.com/i474232898/flight-delays/internal/delays/providers"
	"github.com/i474232898/flight-delays/internal/metrics"
	"github.com/i474232898/flight-delays/internal/scheduler"
	"github.com/i474232898/flight-delays/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistent store, shared by the scheduler and the handlers.
	db, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		SQLitePath:  cfg.DBPath,
		PostgresDSN: cfg.DatabaseURL,
	})
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing store", "error", err)
		}
	}()
	slog.Info("store ready", "backend", cfg.StoreBackend)

	m, err := metrics.New()
	if err != nil {
		slog.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider := providers.NewAirlabsProvider(httpClient, cfg.AirlabsAPIKey,
		providers.WithBaseURL(cfg.AirlabsBaseURL),
		providers.WithBackoff(providers.BackoffConfig{
			MaxRetries:      cfg.AirlabsMaxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}),
	)

	service := delays.NewService(db, provider, m)

	// Scheduler that periodically fetches and stores delays.
	var jobs []scheduler.Job
	for _, dir := range cfg.FetchDirections {
		jobs = append(jobs, scheduler.Job{Params: delays.FetchParams{Direction: dir, MinDelay: cfg.FetchMinDelay}})
	}
	sched := scheduler.New(jobs, scheduler.Options{
		Interval:   cfg.FetchInterval,
		Cron:       cfg.FetchCron,
		RunOnStart: cfg.RunOnStart,
	}, service)
	if err := sched.Start(); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := httpapi.NewApp(service, httpapi.AppOptions{
		MetricsHandler: m.Handler(),
		RequestLogging: true,
	})

	go func() {
		slog.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
}
