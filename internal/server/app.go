// Package server exposes the export operations over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"qrforge/internal/config"
)

type App struct {
	cfg    config.Config
	logger zerolog.Logger
}

func NewApp(cfg config.Config, logger zerolog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.cfg.APIBind,
		Handler:           NewHTTPHandler(a.cfg, a.logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if strings.TrimSpace(a.cfg.APIToken) == "" {
		a.logger.Warn().Msg("QRFORGE_API_TOKEN is empty: only trusted local clients may call export endpoints")
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", a.cfg.APIBind).Msg("qrforge API listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	a.logger.Info().Msg("qrforge API stopped")
	return nil
}
