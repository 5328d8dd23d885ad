package server

import (
	"context"
	"errors"
	"time"

	"StockPilot/internal/usecase"
	"StockPilot/pkg/config"
	xhttp "StockPilot/pkg/http"
	pkgkafka "StockPilot/pkg/kafka"
	applogger "StockPilot/pkg/logger"
	"StockPilot/pkg/queue"
)

// App encapsulates the serve lifecycle: HTTP API, warehouse loader, job queue
// and ingestion scheduler. Optional parts are nil when disabled by config.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	loader     pkgkafka.MessageHandler
	jobs       queue.Queue
	scheduler  *usecase.Scheduler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	loader pkgkafka.MessageHandler,
	jobs queue.Queue,
	scheduler *usecase.Scheduler,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		l:          l,
		httpServer: httpServer,
		consumer:   consumer,
		loader:     loader,
		jobs:       jobs,
		scheduler:  scheduler,
	}
}

// Run starts every component and blocks until ctx is cancelled or the HTTP
// listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if a.jobs != nil {
		if err := a.jobs.Start(); err != nil && !errors.Is(err, queue.ErrAlreadyStart) {
			return err
		}
		a.l.Info("job queue started")
	}

	if a.consumer != nil && a.loader != nil {
		a.consumer.RegisterHandler(a.loader)
		if err := a.consumer.Start(); err != nil {
			a.shutdown()
			return err
		}
		a.l.Info("warehouse loader consuming", applogger.String("topic", a.loader.Topic()))
	}

	if a.scheduler != nil {
		a.scheduler.Start(ctx)
		a.l.Info("ingestion scheduled", applogger.Time("next", a.scheduler.Next()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.shutdown()
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case runErr = <-a.httpServer.Err():
	}
	a.shutdown()
	return runErr
}

// shutdown stops intake first, then drains background work.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()
	a.l.Info("shutting down")

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
	}
	if a.jobs != nil {
		if err := a.jobs.Stop(ctx); err != nil && !errors.Is(err, queue.ErrNotRunning) {
			a.l.Warn("job queue stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	a.l.Info("shutdown complete")
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg != nil && a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 20 * time.Second
}
