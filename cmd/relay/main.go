package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/antoniostano/voicerelay/internal/config"
	"github.com/antoniostano/voicerelay/internal/httpapi"
	"github.com/antoniostano/voicerelay/internal/logger"
	"github.com/antoniostano/voicerelay/internal/observability"
	"github.com/antoniostano/voicerelay/internal/provision"
)

func main() {
	l := logger.New("relay", log.InfoLevel)

	if err := config.LoadEnvFile(config.EnvFilePath()); err != nil {
		l.Warn("env file not applied", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		l.Fatal("config error", "err", err)
	}
	l.SetLevel(logger.ParseLevel(cfg.LogLevel))

	if cfg.DailyBotsURL == "" {
		l.Warn("DAILY_BOTS_URL is not set; every connect request will be rejected")
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	client := provision.NewClient(cfg.DailyBotsURL, cfg.DailyBotsAPIKey)

	api := httpapi.New(cfg, client, metrics, l.WithPrefix("http"))
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: observability.MetricsHandler(),
		}
		go func() {
			l.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				l.Error("metrics listen error", "err", err)
			}
		}()
	}

	go func() {
		l.Info("server listening", "addr", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("listen error", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	l.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("graceful shutdown failed", "err", err)
		_ = httpServer.Close()
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	l.Info("shutdown complete")
}
