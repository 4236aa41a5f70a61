// Package export turns the current QR document into downloadable PNG and SVG
// files or a clipboard image.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"qrforge/internal/blob"
	"qrforge/internal/qr"
	"qrforge/internal/raster"
	"qrforge/internal/render"
)

// Source hands out the configuration and the document rendered from it as one
// consistent pair. The document is zero when nothing has been rendered.
type Source interface {
	Current() (qr.Config, render.Document)
}

type Clipboard interface {
	WriteImage(ctx context.Context, mime string, data []byte) error
}

// Recorder observes finished exports, e.g. for metrics.
type Recorder interface {
	ObserveExport(kind Kind, outcome string, elapsed time.Duration)
}

type Options struct {
	Downloader Downloader
	Clipboard  Clipboard
	Recorder   Recorder
	Logger     zerolog.Logger
}

type Pipeline struct {
	src        Source
	store      *blob.Store
	downloader Downloader
	clipboard  Clipboard
	recorder   Recorder
	logger     zerolog.Logger
}

func New(src Source, store *blob.Store, opts Options) *Pipeline {
	return &Pipeline{
		src:        src,
		store:      store,
		downloader: opts.Downloader,
		clipboard:  opts.Clipboard,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
	}
}

type composed struct {
	href string
	data []byte
	err  error
}

// ExportPNG rasterizes the current document and downloads it as qr-code.png.
// The configuration is captured before this returns; completion is signaled
// through the returned future.
func (p *Pipeline) ExportPNG(ctx context.Context) *Future[Result] {
	start := time.Now()
	cfg, doc, ok := p.capture()
	if !ok {
		return completed(p.finish(Result{Kind: KindPNG, Skipped: true}, start))
	}

	return chain(p.compose(ctx, cfg, doc), func(c composed) Result {
		res := Result{Kind: KindPNG}
		if c.err != nil {
			res.Err, res.Toast = c.err, ToastPNGFailed
			return p.finish(res, start)
		}
		if err := p.download(PNGFileName, c.href); err != nil {
			res.Err, res.Toast = err, ToastPNGFailed
			return p.finish(res, start)
		}
		res.Artifact = Artifact{Name: PNGFileName, Type: raster.MIMEType, Data: c.data}
		res.Toast = ToastPNG
		return p.finish(res, start)
	})
}

// ExportSVG downloads the document verbatim as qr-code.svg. The handle created
// for the download is revoked as soon as the download has been triggered.
func (p *Pipeline) ExportSVG() Result {
	start := time.Now()
	_, doc, ok := p.capture()
	if !ok {
		return p.finish(Result{Kind: KindSVG, Skipped: true}, start)
	}

	b := blob.Blob{Data: append([]byte(nil), doc.SVG...), Type: render.MIMEType}
	url := p.store.CreateObjectURL(b)
	err := p.download(SVGFileName, url)
	p.store.RevokeObjectURL(url)

	res := Result{Kind: KindSVG}
	if err != nil {
		res.Err, res.Toast = err, ToastSVGFailed
		return p.finish(res, start)
	}
	res.Artifact = Artifact{Name: SVGFileName, Type: b.Type, Data: b.Data}
	res.Toast = ToastSVG
	return p.finish(res, start)
}

// CopyToClipboard composes the same raster as ExportPNG and places it on the
// clipboard. Clipboard failures turn into a "Copy failed" result.
func (p *Pipeline) CopyToClipboard(ctx context.Context) *Future[Result] {
	start := time.Now()
	cfg, doc, ok := p.capture()
	if !ok {
		return completed(p.finish(Result{Kind: KindClipboard, Skipped: true}, start))
	}

	return chain(p.compose(ctx, cfg, doc), func(c composed) Result {
		res := Result{Kind: KindClipboard}
		if err := p.copy(ctx, c); err != nil {
			res.Err, res.Toast = err, ToastCopyFailed
			return p.finish(res, start)
		}
		res.Artifact = Artifact{Type: raster.MIMEType, Data: c.data}
		res.Toast = ToastCopied
		return p.finish(res, start)
	})
}

func (p *Pipeline) capture() (qr.Config, render.Document, bool) {
	cfg, doc := p.src.Current()
	if cfg.Empty() || doc.Empty() {
		return cfg, doc, false
	}
	return cfg, doc, true
}

// compose paints doc onto a canvas pre-filled with the background color and
// hands back the PNG as a data URL.
func (p *Pipeline) compose(ctx context.Context, cfg qr.Config, doc render.Document) *Future[composed] {
	out := newFuture[composed]()
	go func() {
		select {
		case <-ctx.Done():
			out.complete(composed{err: ctx.Err()})
			return
		default:
		}

		img, err := raster.Compose(doc.SVG, cfg.Size, cfg.Background.RGBA())
		if err != nil {
			out.complete(composed{err: fmt.Errorf("compose png: %w", err)})
			return
		}
		data, err := raster.EncodePNG(img)
		if err != nil {
			out.complete(composed{err: err})
			return
		}
		out.complete(composed{
			href: blob.DataURL(blob.Blob{Data: data, Type: raster.MIMEType}),
			data: data,
		})
	}()
	return out
}

func (p *Pipeline) download(name, href string) error {
	if p.downloader == nil {
		return fmt.Errorf("no downloader configured")
	}
	return p.downloader.Download(name, href)
}

func (p *Pipeline) copy(ctx context.Context, c composed) error {
	if c.err != nil {
		return c.err
	}
	if p.clipboard == nil {
		return fmt.Errorf("no clipboard configured")
	}
	b, err := p.store.Resolve(c.href)
	if err != nil {
		return fmt.Errorf("read composed png: %w", err)
	}
	return p.clipboard.WriteImage(ctx, b.Type, b.Data)
}

func (p *Pipeline) finish(res Result, start time.Time) Result {
	elapsed := time.Since(start)
	if p.recorder != nil {
		p.recorder.ObserveExport(res.Kind, res.Outcome(), elapsed)
	}

	switch {
	case res.Skipped:
		p.logger.Debug().Str("kind", string(res.Kind)).Msg("export skipped: nothing to export")
	case res.Err != nil:
		p.logger.Warn().Err(res.Err).Str("kind", string(res.Kind)).Dur("elapsed", elapsed).Msg("export failed")
	default:
		p.logger.Info().Str("kind", string(res.Kind)).Int("bytes", len(res.Artifact.Data)).Dur("elapsed", elapsed).Msg("export complete")
	}
	return res
}
