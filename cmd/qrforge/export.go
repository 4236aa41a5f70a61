package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"qrforge/internal/blob"
	"qrforge/internal/clipboard"
	"qrforge/internal/config"
	"qrforge/internal/export"
	xlog "qrforge/internal/log"
	"qrforge/internal/metrics"
	"qrforge/internal/qr"
	"qrforge/internal/studio"
)

type exportOptions struct {
	text       string
	size       int
	level      string
	theme      string
	foreground string
	background string
	logo       string
	outDir     string

	// board is shared by the pipeline and the copy command's hold.
	board heldClipboard
	hold  bool
}

type heldClipboard interface {
	export.Clipboard
	Hold(ctx context.Context) error
}

func (o *exportOptions) sharedClipboard() heldClipboard {
	if o.board == nil {
		o.board = &clipboard.System{}
	}
	return o.board
}

func (o *exportOptions) bind(cmd *cobra.Command, cfg config.Config) {
	f := cmd.Flags()
	f.StringVarP(&o.text, "text", "t", cfg.DefaultText, "text or URL to encode")
	f.IntVarP(&o.size, "size", "s", cfg.DefaultSize, fmt.Sprintf("edge length in pixels (%d-%d)", qr.MinSize, qr.MaxSize))
	f.StringVarP(&o.level, "level", "l", cfg.DefaultLevel, "error correction level: L, M, Q or H")
	f.StringVar(&o.theme, "theme", cfg.DefaultTheme, "color theme: midnight, light, ocean or sunset")
	f.StringVar(&o.foreground, "fg", "", "foreground color, overrides the theme")
	f.StringVar(&o.background, "bg", "", "background color, overrides the theme")
	f.StringVar(&o.logo, "logo", "", "image file placed in the center; forces level H")
}

func (o *exportOptions) bindOutDir(cmd *cobra.Command, cfg config.Config) {
	cmd.Flags().StringVarP(&o.outDir, "out-dir", "o", cfg.DownloadDir, "directory the file is written to")
}

// state builds a studio from the options. The caller must Close it.
func (o *exportOptions) state(logger zerolog.Logger) (*studio.State, *blob.Store, error) {
	if err := qr.ValidateSize(o.size); err != nil {
		return nil, nil, err
	}
	level, err := qr.ParseLevel(o.level)
	if err != nil {
		return nil, nil, fmt.Errorf("level %q: %w", o.level, err)
	}

	store := blob.NewStore()
	s := studio.New(store, studio.Defaults{Text: o.text, Size: o.size, Level: level}, logger)
	if err := o.apply(s); err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, store, nil
}

func (o *exportOptions) apply(s *studio.State) error {
	if err := s.SetTheme(o.theme); err != nil {
		return err
	}
	if o.foreground != "" {
		if err := s.SetForeground(o.foreground); err != nil {
			return err
		}
	}
	if o.background != "" {
		if err := s.SetBackground(o.background); err != nil {
			return err
		}
	}
	if o.logo != "" {
		data, err := os.ReadFile(o.logo)
		if err != nil {
			return fmt.Errorf("read logo: %w", err)
		}
		if err := s.AttachLogo(filepath.Base(o.logo), data); err != nil {
			return err
		}
	}
	return nil
}

func (o *exportOptions) pipeline(s *studio.State, store *blob.Store, logger zerolog.Logger) *export.Pipeline {
	return export.New(s, store, export.Options{
		Downloader: export.DirDownloader{Dir: o.outDir, Resolver: store, Logger: logger},
		Clipboard:  o.sharedClipboard(),
		Recorder:   metrics.Exports{},
		Logger:     logger,
	})
}

func runExport(cmd *cobra.Command, o *exportOptions, run func(context.Context, *export.Pipeline) export.Result) error {
	logger := xlog.WithComponent("cli")
	s, store, err := o.state(logger)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := run(ctx, o.pipeline(s, store, logger))
	switch {
	case res.Skipped:
		return fmt.Errorf("nothing to export: %w", qr.ErrEmptyPayload)
	case res.Err != nil:
		return fmt.Errorf("%s: %w", res.Toast, res.Err)
	}

	out := cmd.OutOrStdout()
	if res.Artifact.Name != "" {
		fmt.Fprintf(out, "%s %s\n", res.Toast, filepath.Join(o.outDir, res.Artifact.Name))
	} else {
		fmt.Fprintln(out, res.Toast)
	}
	if !o.hold {
		return nil
	}

	fmt.Fprintln(out, "Holding the clipboard until another program replaces it (Ctrl+C to exit)")
	err = o.sharedClipboard().Hold(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func pngCommand(cfg config.Config) *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "png",
		Short: "Write qr-code.png",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, &opts, func(ctx context.Context, p *export.Pipeline) export.Result {
				return p.ExportPNG(ctx).Await()
			})
		},
	}
	opts.bind(cmd, cfg)
	opts.bindOutDir(cmd, cfg)
	return cmd
}

func svgCommand(cfg config.Config) *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "svg",
		Short: "Write qr-code.svg",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, &opts, func(_ context.Context, p *export.Pipeline) export.Result {
				return p.ExportSVG()
			})
		},
	}
	opts.bind(cmd, cfg)
	opts.bindOutDir(cmd, cfg)
	return cmd
}

func copyCommand(cfg config.Config) *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy the QR code to the clipboard as PNG",
		Long: `Copy the QR code to the clipboard as PNG.

On X11 the clipboard content is served by the process that wrote it, so
copy keeps running after the image is placed. It exits once another
program takes over the clipboard or on Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, &opts, func(ctx context.Context, p *export.Pipeline) export.Result {
				return p.CopyToClipboard(ctx).Await()
			})
		},
	}
	opts.hold = true
	opts.bind(cmd, cfg)
	return cmd
}
