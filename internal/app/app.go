// Package app assembles the service: config, logging, tracing, file
// storage, the job queue, the websocket hub, and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dataclean/internal/config"
	"dataclean/internal/infrastructure"
	"dataclean/internal/jobs"
	"dataclean/internal/services"
	"dataclean/internal/storage"
	transport "dataclean/internal/transport/http"
	ws "dataclean/internal/websocket"
)

// Application is the composed service container.
type Application struct {
	Config  *config.Config
	Logger  *slog.Logger
	Server  *http.Server
	Queue   *jobs.Queue
	Hub     *ws.Hub
	Files   *storage.FileStore
	Service *services.CleanService
	OTel    *infrastructure.OTelProviders
}

// NewApplication wires every component from configuration.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize tracing: %w", err)
	}

	files := storage.NewFileStore(cfg.Storage.UploadDir, cfg.Storage.OutputDir, cfg.Storage.SchemaDir)
	service := services.NewCleanService(files, logger)

	store, err := newJobStore(cfg.Jobs)
	if err != nil {
		return nil, fmt.Errorf("initialize job store: %w", err)
	}

	hub := ws.NewHub(logger)
	broadcaster := jobs.NewBroadcaster(hub, logger)
	queue := jobs.NewQueue(jobs.QueueConfig{
		Workers:   cfg.Jobs.Workers,
		QueueSize: cfg.Jobs.QueueSize,
		Timeout:   cfg.Jobs.Timeout,
	}, store, service, broadcaster, logger, otelProviders.Tracer)

	router := transport.NewRouter(transport.RouterDeps{
		Service:   service,
		Queue:     queue,
		Files:     files,
		WSHandler: ws.NewHandler(hub, cfg.WebSocket, logger),
		Config:    cfg,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return &Application{
		Config:  cfg,
		Logger:  logger,
		Server:  server,
		Queue:   queue,
		Hub:     hub,
		Files:   files,
		Service: service,
		OTel:    otelProviders,
	}, nil
}

func newJobStore(cfg config.JobsConfig) (jobs.Store, error) {
	switch cfg.Store {
	case "sqlite":
		return jobs.NewSQLiteStore(cfg.SQLitePath)
	default:
		return jobs.NewMemoryStore(), nil
	}
}

// Run starts the service and blocks until SIGINT/SIGTERM or a fatal
// server error.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Hub.Start()
	a.Queue.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening",
			slog.String("addr", a.Server.Addr),
			slog.String("job_store", a.Config.Jobs.Store),
			slog.Int("workers", a.Config.Jobs.Workers))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.Logger.Info("shutdown signal received")
	}

	return a.Shutdown()
}

// Shutdown stops the server, drains the queue, and flushes telemetry.
func (a *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}

	if err := a.Queue.Stop(a.Config.Server.ShutdownTimeout); err != nil {
		a.Logger.Warn("queue did not drain in time", slog.String("error", err.Error()))
	}

	a.Hub.Stop()

	if a.OTel != nil {
		shutdownCtx, otelCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer otelCancel()
		if err := a.OTel.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}

	a.Logger.Info("shutdown complete")
	return infrastructure.CloseLogFile()
}
