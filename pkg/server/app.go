package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"FlowTrack/internal/handler/api"
	"FlowTrack/internal/usecase"
	pkgch "FlowTrack/pkg/clickhouse"
	"FlowTrack/pkg/config"
	xhttp "FlowTrack/pkg/http"
	applogger "FlowTrack/pkg/logger"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	scanner    *usecase.Scanner
	emitter    *usecase.Emitter
	alerts     *api.AlertsHandler
	stream     *api.StreamHandler
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	scanner *usecase.Scanner,
	emitter *usecase.Emitter,
	alerts *api.AlertsHandler,
	stream *api.StreamHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		scanner:  scanner,
		emitter:  emitter,
		alerts:   alerts,
		stream:   stream,
		chClient: chClient,
	}
}

type routes struct {
	handlers []xhttp.Handler
}

func (r routes) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(routes{handlers: []xhttp.Handler{a.alerts, a.stream}},
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout.Std(), a.cfg.Server.WriteTimeout.Std(), a.cfg.Server.ShutdownTimeout.Std()),
	)

	scanErr := make(chan error, 1)
	go func() {
		if err := a.scanner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("scanner error", applogger.Error(err))
			scanErr <- err
		}
	}()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		a.log.Info("shutdown signal received")
	case err := <-scanErr:
		a.log.Error("scanner stopped, shutting down", applogger.Error(err))
	}
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	// drain the sink publish queue before the archive client goes away
	a.emitter.Close()

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
