package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/teasertech/ghl-lead-relay/internal/app/bootstrap"
	appconfig "github.com/teasertech/ghl-lead-relay/internal/config"
	"github.com/teasertech/ghl-lead-relay/internal/observability/tracing"
	"github.com/teasertech/ghl-lead-relay/pkg/logging"
)

func main() {
	envErr := godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if envErr != nil {
		logger.Debug("no .env file loaded, using process environment", "error", envErr)
	}
	logger.Info("starting ghl-lead-relay API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	tp, err := tracing.Setup(context.Background(), tracing.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	if tp.Enabled() {
		logger.Info("trace export enabled", "endpoint", cfg.OTLPEndpoint)
	}

	relay, err := bootstrap.BuildRelay(context.Background(), cfg, bootstrap.Options{}, logger)
	if err != nil {
		logger.Error("failed to initialize relay", "error", err)
		os.Exit(1)
	}
	defer relay.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      relay.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 2*cfg.CRMTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := tp.Shutdown(ctx); err != nil {
		logger.Warn("trace exporter shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
