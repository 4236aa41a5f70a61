package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"qrforge/internal/config"
	xlog "qrforge/internal/log"
	"qrforge/internal/server"
)

func main() {
	logger := xlog.WithComponent("server")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if err := xlog.Configure(xlog.Config{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		logger.Warn().Err(err).Msg("log file unavailable")
	}
	defer xlog.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := server.NewApp(cfg, xlog.WithComponent("server"))
	if err := app.Run(ctx); err != nil {
		stopLogger := xlog.WithComponent("server")
		stopLogger.Fatal().Err(err).Msg("server stopped")
	}
}
