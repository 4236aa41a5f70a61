package main

import (
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"qrforge/internal/blob"
	"qrforge/internal/clipboard"
	"qrforge/internal/config"
	"qrforge/internal/export"
	xlog "qrforge/internal/log"
	"qrforge/internal/metrics"
	"qrforge/internal/studio"
	"qrforge/internal/ui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := xlog.Configure(xlog.Config{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		fmt.Fprintf(os.Stderr, "log file: %v\n", err)
	}
	defer xlog.Close()
	logger := xlog.WithComponent("gui")
	if cfg.Source != "" {
		logger.Info().Str("path", cfg.Source).Msg("settings loaded")
	}

	store := blob.NewStore()
	state := studio.New(store, studio.Defaults{
		Text:  cfg.DefaultText,
		Theme: cfg.DefaultTheme,
		Size:  cfg.DefaultSize,
		Level: cfg.Level(),
	}, xlog.WithComponent("studio"))
	defer state.Close()

	pipeline := export.New(state, store, export.Options{
		Downloader: export.DirDownloader{Dir: cfg.DownloadDir, Resolver: store, Logger: logger},
		Clipboard:  &clipboard.System{},
		Recorder:   metrics.Exports{},
		Logger:     xlog.WithComponent("export"),
	})

	qrApp := app.New()
	win := qrApp.NewWindow("QR Forge")
	win.Resize(fyne.NewSize(860, 520))

	shell := ui.New(win, state, pipeline, logger)
	win.SetContent(shell.Content())
	logger.Info().Str("download_dir", cfg.DownloadDir).Msg("studio ready")
	win.ShowAndRun()
}
