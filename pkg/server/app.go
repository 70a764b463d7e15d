package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PulseWatch/internal/usecase"
	xhttp "PulseWatch/pkg/http"
	pkgkafka "PulseWatch/pkg/kafka"
	applogger "PulseWatch/pkg/logger"
)

const sweepInterval = time.Minute

// Sweeper drops idle rate limit state.
type Sweeper interface {
	Sweep() int
}

// App encapsulates the entire application lifecycle.
type App struct {
	log        *applogger.Logger
	httpServer *xhttp.Server
	scheduler  *usecase.Scheduler
	consumer   *pkgkafka.Consumer
	sweeper    Sweeper

	shutdownTimeout time.Duration
	monitorEnabled  bool
}

type Options struct {
	ShutdownTimeout time.Duration
	MonitorEnabled  bool
}

// New creates a new App instance with all dependencies. consumer and
// sweeper may be nil.
func New(
	log *applogger.Logger,
	httpServer *xhttp.Server,
	scheduler *usecase.Scheduler,
	consumer *pkgkafka.Consumer,
	sweeper Sweeper,
	opts Options,
) *App {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &App{
		log:             log,
		httpServer:      httpServer,
		scheduler:       scheduler,
		consumer:        consumer,
		sweeper:         sweeper,
		shutdownTimeout: opts.ShutdownTimeout,
		monitorEnabled:  opts.MonitorEnabled,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done or the
// HTTP server fails to start.
func (a *App) RunContext(ctx context.Context) error {
	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
	}

	if a.monitorEnabled {
		a.scheduler.Start(ctx)
	} else {
		a.log.Info("monitor scheduler disabled; ticks run only on demand")
	}

	if a.sweeper != nil {
		go a.sweep(ctx)
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		a.shutdown()
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	a.shutdown()
	return nil
}

func (a *App) sweep(ctx context.Context) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.sweeper.Sweep(); n > 0 {
				a.log.Debug("rate limit buckets swept", applogger.Int("removed", n))
			}
		}
	}
}

// shutdown stops intake first, then background work.
func (a *App) shutdown() {
	a.log.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.monitorEnabled {
		a.scheduler.Stop()
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
}
