package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civicaccess/streetlaw/internal/bootstrap"
	"github.com/civicaccess/streetlaw/internal/config"
	"github.com/civicaccess/streetlaw/internal/core/domain"
	"github.com/civicaccess/streetlaw/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "judge-worker", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewJudgeWorkerMetrics("judge-worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		app.Logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	app.Logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeJudgeRequests(ctx, func(handlerCtx context.Context, interactionID string) error {
		start := time.Now()
		workerMetrics.StartJudgment()

		if interaction, err := app.Interactions.GetByID(handlerCtx, interactionID); err == nil {
			workerMetrics.ObserveQueueLag("judge-worker", time.Since(interaction.CreatedAt))
		}

		err := app.JudgeUC.JudgeByID(handlerCtx, interactionID)
		status := "scored"
		if err != nil {
			status = "failed"
		}
		workerMetrics.FinishJudgment("judge-worker", status, time.Since(start))

		if err == nil {
			if judgment, jErr := app.Interactions.GetJudgment(handlerCtx, interactionID); jErr == nil && judgment.Status == domain.JudgmentScored {
				workerMetrics.ObserveScore("judge-worker", judgment.Score)
			}
		}
		return err
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func metricsHandler(m *metrics.JudgeWorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())
	return mux
}
