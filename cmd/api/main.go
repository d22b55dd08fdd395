package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/civicaccess/streetlaw/internal/adapters/http"
	"github.com/civicaccess/streetlaw/internal/bootstrap"
	"github.com/civicaccess/streetlaw/internal/config"
	"github.com/civicaccess/streetlaw/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "api", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	apiMetrics := metrics.NewAPIMetrics("api")
	apiMetrics.SetIndexMode("api", app.IndexMode)

	router := httpadapter.NewRouter(
		app.IngestUC,
		app.AskUC,
		app.Interactions,
		app.Extractor,
		apiMetrics,
		app.IndexMode,
		cfg.AskRatePerSecond,
		cfg.AskRateBurst,
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		app.Logger.Info("api_listening", "port", cfg.APIPort, "index_mode", app.IndexMode)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("api_shutdown_error", "error", err)
	}
}
