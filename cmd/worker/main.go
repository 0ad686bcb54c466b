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

	"github.com/kirillkom/court-docket-router/internal/bootstrap"
	"github.com/kirillkom/court-docket-router/internal/config"
	"github.com/kirillkom/court-docket-router/internal/observability/logging"
	"github.com/kirillkom/court-docket-router/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, "docket-worker", cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("docket-worker")
	app, err := bootstrap.New(ctx, cfg, workerMetrics)
	if err != nil {
		logger.Error("bootstrap_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", slog.String("subject", cfg.NATSSubject))
	err = app.Queue.SubscribeEnvelopeReceived(ctx, func(handlerCtx context.Context, envelopeID string) error {
		if envelope, err := app.QueryUC.GetEnvelope(handlerCtx, envelopeID); err == nil {
			workerMetrics.ObserveQueueLag(time.Since(envelope.CreatedAt))
		}

		workerMetrics.StartEnvelope()
		started := time.Now()
		err := app.ProcessUC.ProcessByID(handlerCtx, envelopeID)
		workerMetrics.FinishEnvelope(time.Since(started), err)

		if err != nil {
			logger.Error("envelope_process_failed", slog.String("envelope_id", envelopeID), slog.String("error", err.Error()))
			return err
		}
		logger.Info("envelope_processed", slog.String("envelope_id", envelopeID), slog.Duration("duration", time.Since(started)))
		return nil
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
