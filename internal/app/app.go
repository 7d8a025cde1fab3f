package app

import (
	"context"
	"net/http"

	"identity-service/internal/config"
	"identity-service/internal/event"

	"go.uber.org/zap"
)

type App struct {
	httpServer *http.Server
	publisher  *event.Publisher
	cleanup    func() error
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	router, publisher, cleanup, err := setupHTTP(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: router,
	}

	return &App{
		httpServer: server,
		publisher:  publisher,
		cleanup:    cleanup,
	}, nil
}

func (a *App) Run() error {
	return a.httpServer.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	// Drain queued events before dropping infra connections.
	a.publisher.Close()

	if a.cleanup != nil {
		return a.cleanup()
	}
	return nil
}
