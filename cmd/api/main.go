package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/tradepilot/tradepilot/internal/adapters/http"
	"github.com/tradepilot/tradepilot/internal/bootstrap"
	"github.com/tradepilot/tradepilot/internal/config"
	"github.com/tradepilot/tradepilot/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Setup("api", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.AskService, httpadapter.RouterOptions{
		RateLimitRPS:   cfg.HTTPRateLimitRPS,
		MaxInFlight:    8,
		MetricsHandler: app.Pipeline.Handler(),
		HTTPMetrics:    app.HTTP,
	}).Handler()

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
		// An ask can drive a browser and two LLM calls, so the write timeout
		// must cover the whole pipeline.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
}
