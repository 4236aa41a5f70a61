package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"qrforge/internal/config"
	xlog "qrforge/internal/log"
	"qrforge/internal/server"
)

func serveCommand(cfg config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the export API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.NewApp(cfg, xlog.WithComponent("server")).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&cfg.APIBind, "bind", cfg.APIBind, "listen address")
	cmd.Flags().IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "export requests per minute per client, 0 disables")
	return cmd
}
