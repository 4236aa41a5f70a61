package export

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"qrforge/internal/blob"
	"qrforge/internal/qr"
	"qrforge/internal/render"
)

type fakeSource struct {
	mu    sync.Mutex
	store *blob.Store
	cfg   qr.Config
	doc   render.Document
}

func (s *fakeSource) set(t *testing.T, cfg qr.Config) {
	t.Helper()
	var doc render.Document
	if !cfg.Empty() {
		var err error
		doc, err = render.Render(cfg, s.store)
		require.NoError(t, err)
	}
	s.mu.Lock()
	s.cfg, s.doc = cfg, doc
	s.mu.Unlock()
}

func (s *fakeSource) Current() (qr.Config, render.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, s.doc
}

type saved struct {
	name string
	blob blob.Blob
}

type recordingDownloader struct {
	mu       sync.Mutex
	resolver blob.Resolver
	saved    []saved
	err      error
}

func (d *recordingDownloader) Download(name, href string) error {
	if d.err != nil {
		return d.err
	}
	b, err := d.resolver.Resolve(href)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.saved = append(d.saved, saved{name: name, blob: b})
	d.mu.Unlock()
	return nil
}

func (d *recordingDownloader) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.saved)
}

type fakeClipboard struct {
	mu     sync.Mutex
	err    error
	writes [][]byte
	mime   string
}

func (c *fakeClipboard) WriteImage(_ context.Context, mime string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	c.writes = append(c.writes, data)
	c.mime = mime
	c.mu.Unlock()
	return nil
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *countingRecorder) ObserveExport(kind Kind, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[string(kind)+"/"+outcome]++
}

type harness struct {
	store *blob.Store
	src   *fakeSource
	dl    *recordingDownloader
	clip  *fakeClipboard
	rec   *countingRecorder
	p     *Pipeline
}

func newHarness(t *testing.T, cfg qr.Config) *harness {
	t.Helper()
	store := blob.NewStore()
	h := &harness{
		store: store,
		src:   &fakeSource{store: store},
		dl:    &recordingDownloader{resolver: store},
		clip:  &fakeClipboard{},
		rec:   &countingRecorder{},
	}
	h.src.set(t, cfg)
	h.p = New(h.src, store, Options{
		Downloader: h.dl,
		Clipboard:  h.clip,
		Recorder:   h.rec,
		Logger:     zerolog.Nop(),
	})
	return h
}

func config(size int, level qr.Level) qr.Config {
	return qr.Config{
		Text:       "https://example.com",
		Size:       size,
		Level:      level,
		Foreground: "#4f46e5",
		Background: "#ffffff",
	}
}

func TestExportPNGMatchesConfiguredSize(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, level := range qr.Levels {
		for size := qr.MinSize; size <= qr.MaxSize; size += 2 * qr.SizeStep {
			h := newHarness(t, config(size, level))

			res := h.p.ExportPNG(context.Background()).Await()
			require.NoError(t, res.Err)
			assert.Equal(t, ToastPNG, res.Toast)
			assert.Equal(t, PNGFileName, res.Artifact.Name)

			require.Equal(t, 1, h.dl.count())
			decoded, err := png.DecodeConfig(bytes.NewReader(h.dl.saved[0].blob.Data))
			require.NoError(t, err)
			assert.Equal(t, size, decoded.Width, "level %s", level)
			assert.Equal(t, size, decoded.Height, "level %s", level)
		}
	}
}

func TestExportPNGFillsBackground(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := config(256, qr.LevelHigh)
	cfg.Background = "#ffeedd"
	h := newHarness(t, cfg)

	res := h.p.ExportPNG(context.Background()).Await()
	require.NoError(t, res.Err)

	img, err := png.Decode(bytes.NewReader(res.Artifact.Data))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
	for _, pt := range [][2]int{{0, 0}, {255, 0}, {0, 255}, {255, 255}} {
		got := color.RGBAModel.Convert(img.At(pt[0], pt[1])).(color.RGBA)
		assert.Equal(t, color.RGBA{R: 0xff, G: 0xee, B: 0xdd, A: 0xff}, got)
	}
}

func TestExportSVGDeclaresSizeAndIsIdempotent(t *testing.T) {
	h := newHarness(t, config(384, qr.LevelMedium))

	first := h.p.ExportSVG()
	second := h.p.ExportSVG()
	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	assert.Equal(t, ToastSVG, first.Toast)
	assert.Equal(t, first.Artifact.Data, second.Artifact.Data)

	require.Equal(t, 2, h.dl.count())
	assert.Equal(t, SVGFileName, h.dl.saved[0].name)
	assert.Equal(t, render.MIMEType, h.dl.saved[0].blob.Type)
	assert.Equal(t, h.dl.saved[0].blob.Data, h.dl.saved[1].blob.Data)

	var root struct {
		Width  string `xml:"width,attr"`
		Height string `xml:"height,attr"`
	}
	require.NoError(t, xml.Unmarshal(first.Artifact.Data, &root))
	assert.Equal(t, strconv.Itoa(384), root.Width)
	assert.Equal(t, strconv.Itoa(384), root.Height)

	// Download handles do not outlive the call.
	assert.Equal(t, 0, h.store.Live())
	assert.Equal(t, 2, h.store.Created())
}

func TestExportsAreInertForBlankText(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, text := range []string{"", "   ", "\t \n"} {
		cfg := config(256, qr.LevelHigh)
		cfg.Text = text
		h := newHarness(t, cfg)

		pending := h.p.ExportPNG(context.Background())
		assert.True(t, pending.IsComplete())
		assert.True(t, pending.Await().Skipped)
		assert.Empty(t, pending.Await().Toast)

		assert.True(t, h.p.ExportSVG().Skipped)
		assert.True(t, h.p.CopyToClipboard(context.Background()).Await().Skipped)

		assert.Equal(t, 0, h.dl.count())
		assert.Empty(t, h.clip.writes)
		assert.Equal(t, 0, h.store.Created())
		assert.Equal(t, 1, h.rec.outcomes["png/skipped"])
		assert.Equal(t, 1, h.rec.outcomes["svg/skipped"])
		assert.Equal(t, 1, h.rec.outcomes["clipboard/skipped"])
	}
}

func TestExportsSkipWithoutDocument(t *testing.T) {
	store := blob.NewStore()
	src := &fakeSource{store: store, cfg: config(256, qr.LevelHigh)}
	dl := &recordingDownloader{resolver: store}
	p := New(src, store, Options{Downloader: dl, Logger: zerolog.Nop()})

	assert.True(t, p.ExportSVG().Skipped)
	assert.True(t, p.ExportPNG(context.Background()).Await().Skipped)
	assert.Equal(t, 0, dl.count())
}

func TestCopyToClipboard(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, config(256, qr.LevelHigh))
	res := h.p.CopyToClipboard(context.Background()).Await()
	require.NoError(t, res.Err)
	assert.Equal(t, ToastCopied, res.Toast)

	require.Len(t, h.clip.writes, 1)
	assert.Equal(t, "image/png", h.clip.mime)
	decoded, err := png.DecodeConfig(bytes.NewReader(h.clip.writes[0]))
	require.NoError(t, err)
	assert.Equal(t, 256, decoded.Width)
	assert.Equal(t, 0, h.dl.count())
}

func TestCopyToClipboardFailureIsReported(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, config(256, qr.LevelHigh))
	h.clip.err = errors.New("permission denied")

	res := h.p.CopyToClipboard(context.Background()).Await()
	assert.False(t, res.Skipped)
	assert.EqualError(t, res.Err, "permission denied")
	assert.Equal(t, ToastCopyFailed, res.Toast)
	assert.Equal(t, 1, h.rec.outcomes["clipboard/failed"])

	// A failed copy does not affect other exports.
	assert.NoError(t, h.p.ExportSVG().Err)
}

func TestExportPNGUsesSnapshotFromCallTime(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, config(128, qr.LevelLow))
	pending := h.p.ExportPNG(context.Background())
	h.src.set(t, config(512, qr.LevelHigh))

	res := pending.Await()
	require.NoError(t, res.Err)
	decoded, err := png.DecodeConfig(bytes.NewReader(res.Artifact.Data))
	require.NoError(t, err)
	assert.Equal(t, 128, decoded.Width)
}

func TestExportPNGCanceledBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, config(256, qr.LevelHigh))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := h.p.ExportPNG(ctx).Await()
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, ToastPNGFailed, res.Toast)
	assert.Equal(t, 0, h.dl.count())
}

func TestExportSVGDownloadFailure(t *testing.T) {
	h := newHarness(t, config(256, qr.LevelHigh))
	h.dl.err = errors.New("disk full")

	res := h.p.ExportSVG()
	assert.EqualError(t, res.Err, "disk full")
	assert.Equal(t, ToastSVGFailed, res.Toast)
	assert.Equal(t, 0, h.store.Live())
}

func TestDirDownloaderWritesFixedNames(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := filepath.Join(t.TempDir(), "downloads")
	store := blob.NewStore()
	src := &fakeSource{store: store}
	src.set(t, config(256, qr.LevelHigh))
	p := New(src, store, Options{
		Downloader: DirDownloader{Dir: dir, Resolver: store, Logger: zerolog.Nop()},
		Logger:     zerolog.Nop(),
	})

	require.NoError(t, p.ExportSVG().Err)
	require.NoError(t, p.ExportPNG(context.Background()).Await().Err)

	svg, err := os.ReadFile(filepath.Join(dir, SVGFileName))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(svg, []byte("<svg")))

	f, err := os.Open(filepath.Join(dir, PNGFileName))
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 256, decoded.Width)
}
