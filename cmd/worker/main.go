package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tradepilot/tradepilot/internal/config"
	"github.com/tradepilot/tradepilot/internal/core/domain"
	natsqueue "github.com/tradepilot/tradepilot/internal/infrastructure/queue/nats"
	"github.com/tradepilot/tradepilot/internal/infrastructure/repository/postgres"
	"github.com/tradepilot/tradepilot/internal/observability/logging"
	"github.com/tradepilot/tradepilot/internal/observability/metrics"
)

// The worker drains completed-run events off the queue and persists the
// audit trail. It runs separately from the API so a slow database never
// blocks an answer.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Setup("worker", cfg.LogLevel)

	if err := cfg.ValidateWorker(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		slog.Error("open postgres failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := postgres.NewRunRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		slog.Error("ensure schema failed", "error", err)
		os.Exit(1)
	}

	queue, err := natsqueue.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		slog.Error("connect queue failed", "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	workerMetrics := metrics.NewPipelineMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		slog.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = queue.SubscribeRunCompleted(ctx, func(handlerCtx context.Context, record domain.RunRecord) error {
		insertCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		return repo.InsertRun(insertCtx, record)
	})
	if err != nil {
		slog.Error("worker subscribe failed", "error", err)
		os.Exit(1)
	}
}
