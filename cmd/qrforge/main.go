// Command qrforge renders QR codes to PNG or SVG files, the clipboard, or an
// HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qrforge/internal/config"
	xlog "qrforge/internal/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:           "qrforge",
		Short:         "Generate styled QR codes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	verbose := rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		level := cfg.LogLevel
		if *verbose {
			level = "debug"
		}
		if err := xlog.Configure(xlog.Config{
			Level:   level,
			File:    cfg.LogFile,
			Output:  os.Stderr,
			Console: cmd.Name() != "serve",
		}); err != nil {
			fmt.Fprintf(os.Stderr, "log file: %v\n", err)
		}
		return nil
	}

	rootCmd.AddCommand(
		pngCommand(cfg),
		svgCommand(cfg),
		copyCommand(cfg),
		serveCommand(cfg),
		fetchCommand(cfg),
	)

	err = rootCmd.Execute()
	xlog.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
