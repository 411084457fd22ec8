package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/studypath/studypath-backend/internal/adapters/http"
	"github.com/studypath/studypath-backend/internal/bootstrap"
	"github.com/studypath/studypath-backend/internal/config"
	"github.com/studypath/studypath-backend/internal/observability/logging"
	"github.com/studypath/studypath-backend/internal/observability/metrics"
	"github.com/studypath/studypath-backend/internal/relay"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	registry := relay.NewRegistry(logger, relay.WithDropHook(func() {
		httpMetrics.RecordDroppedEvent("api")
	}))

	// Bridge worker progress from the queue into the per-user relay.
	if err := app.Queue.SubscribeProgress(ctx, registry.Publish); err != nil {
		log.Fatalf("subscribe progress: %v", err)
	}

	router := httpadapter.NewRouter(
		app.IngestUC,
		app.StartUC,
		app.StatusUC,
		app.TreesUC,
		app.QuizUC,
		registry,
		httpMetrics,
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket connections outlive any fixed write deadline.
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
}
