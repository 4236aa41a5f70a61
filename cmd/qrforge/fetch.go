package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"qrforge/internal/apiclient"
	"qrforge/internal/blob"
	"qrforge/internal/config"
	"qrforge/internal/export"
	xlog "qrforge/internal/log"
	"qrforge/internal/raster"
	"qrforge/internal/render"
)

// fetchCommand renders on a remote qrforge server and saves both files
// locally.
func fetchCommand(cfg config.Config) *cobra.Command {
	var (
		opts   exportOptions
		server string
		token  string
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Render on a qrforge server and save qr-code.png and qr-code.svg",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := apiclient.New(server, token)
			if err != nil {
				return err
			}
			req, err := opts.remoteRequest()
			if err != nil {
				return err
			}
			resp, err := client.Render(cmd.Context(), req)
			if err != nil {
				return err
			}
			pngData, err := resp.PNG()
			if err != nil {
				return err
			}

			store := blob.NewStore()
			dl := export.DirDownloader{Dir: opts.outDir, Resolver: store, Logger: xlog.WithComponent("cli")}
			files := []struct {
				name string
				blob blob.Blob
			}{
				{export.PNGFileName, blob.Blob{Data: pngData, Type: raster.MIMEType}},
				{export.SVGFileName, blob.Blob{Data: []byte(resp.SVG), Type: render.MIMEType}},
			}
			for _, f := range files {
				if err := dl.Download(f.name, blob.DataURL(f.blob)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(opts.outDir, f.name))
			}
			return nil
		},
	}
	opts.bind(cmd, cfg)
	opts.bindOutDir(cmd, cfg)
	cmd.Flags().StringVar(&server, "server", cfg.APIBind, "qrforge server host[:port]")
	cmd.Flags().StringVar(&token, "token", cfg.APIToken, "API token")
	return cmd
}

func (o *exportOptions) remoteRequest() (apiclient.Request, error) {
	req := apiclient.Request{
		Text:       o.text,
		Size:       o.size,
		Level:      o.level,
		Theme:      o.theme,
		Foreground: o.foreground,
		Background: o.background,
	}
	if o.logo != "" {
		data, err := os.ReadFile(o.logo)
		if err != nil {
			return apiclient.Request{}, fmt.Errorf("read logo: %w", err)
		}
		req.LogoName = filepath.Base(o.logo)
		req.LogoBase64 = base64.StdEncoding.EncodeToString(data)
	}
	return req, nil
}
