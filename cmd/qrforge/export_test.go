package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrforge/internal/config"
	"qrforge/internal/export"
	"qrforge/internal/qr"
	"qrforge/internal/server"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.DownloadDir = t.TempDir()
	return cfg
}

func TestSVGCommandWritesFile(t *testing.T) {
	cfg := testConfig(t)
	cmd := svgCommand(cfg)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--text", "https://example.com", "--size", "320", "--theme", "ocean"})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(filepath.Join(cfg.DownloadDir, "qr-code.svg"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `width="320"`)
	assert.Contains(t, string(data), `fill="#22d3ee"`)
	assert.Contains(t, out.String(), "SVG downloaded!")
}

func TestPNGCommandHonorsOutDir(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(t.TempDir(), "nested")
	cmd := pngCommand(cfg)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"-t", "hello", "-s", "128", "-o", dir})
	require.NoError(t, cmd.Execute())

	f, err := os.Open(filepath.Join(dir, "qr-code.png"))
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 128, decoded.Width)
}

func TestExportCommandRejectsBlankText(t *testing.T) {
	cfg := testConfig(t)
	cmd := svgCommand(cfg)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--text", "  "})

	err := cmd.Execute()
	assert.ErrorIs(t, err, qr.ErrEmptyPayload)
	_, statErr := os.Stat(filepath.Join(cfg.DownloadDir, "qr-code.svg"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestOptionsState(t *testing.T) {
	logo := filepath.Join(t.TempDir(), "logo.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	require.NoError(t, os.WriteFile(logo, buf.Bytes(), 0o644))

	opts := exportOptions{
		text:       "hello",
		size:       256,
		level:      "m",
		theme:      "light",
		foreground: "#123",
		logo:       logo,
	}
	s, store, err := opts.state(zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	cfg := s.Config()
	assert.Equal(t, qr.LevelHigh, cfg.Level)
	assert.Equal(t, qr.Color("#112233"), cfg.Foreground)
	assert.Equal(t, qr.Color("#ffffff"), cfg.Background)
	assert.Equal(t, "logo.png", s.LogoName())
	assert.Equal(t, 1, store.Live())
}

func TestOptionsStateRejectsInvalidInput(t *testing.T) {
	cases := map[string]exportOptions{
		"size":  {text: "a", size: 100, level: "H", theme: "light"},
		"level": {text: "a", size: 256, level: "Z", theme: "light"},
		"theme": {text: "a", size: 256, level: "H", theme: "neon"},
		"color": {text: "a", size: 256, level: "H", theme: "light", background: "nope"},
		"logo":  {text: "a", size: 256, level: "H", theme: "light", logo: "/does/not/exist.png"},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := opts.state(zerolog.Nop())
			assert.Error(t, err)
		})
	}
}

func TestFetchCommandSavesServerArtifacts(t *testing.T) {
	cfg := testConfig(t)
	api := httptest.NewServer(server.NewHTTPHandler(config.Defaults(), zerolog.Nop()))
	defer api.Close()

	cmd := fetchCommand(cfg)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--server", api.URL, "--text", "https://example.com", "--size", "192"})
	require.NoError(t, cmd.Execute())

	svg, err := os.ReadFile(filepath.Join(cfg.DownloadDir, "qr-code.svg"))
	require.NoError(t, err)
	assert.Contains(t, string(svg), `width="192"`)

	f, err := os.Open(filepath.Join(cfg.DownloadDir, "qr-code.png"))
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 192, decoded.Width)
}

type heldBoard struct {
	images   chan []byte
	replaced chan struct{}
}

func newHeldBoard() *heldBoard {
	return &heldBoard{images: make(chan []byte, 1), replaced: make(chan struct{})}
}

func (b *heldBoard) WriteImage(_ context.Context, _ string, data []byte) error {
	b.images <- data
	return nil
}

func (b *heldBoard) Hold(ctx context.Context) error {
	select {
	case <-b.replaced:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runCopy(ctx context.Context, board *heldBoard) (<-chan error, *bytes.Buffer) {
	opts := exportOptions{text: "hello", size: 128, level: "H", theme: "light", board: board, hold: true}
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	var out bytes.Buffer
	cmd.SetOut(&out)

	done := make(chan error, 1)
	go func() {
		done <- runExport(cmd, &opts, func(ctx context.Context, p *export.Pipeline) export.Result {
			return p.CopyToClipboard(ctx).Await()
		})
	}()
	return done, &out
}

func TestCopyCommandHoldsUntilClipboardReplaced(t *testing.T) {
	board := newHeldBoard()
	done, out := runCopy(context.Background(), board)

	select {
	case data := <-board.images:
		_, err := png.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("image never reached the clipboard")
	}

	select {
	case err := <-done:
		t.Fatalf("copy returned before the clipboard was replaced: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(board.replaced)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("copy kept running after the clipboard was replaced")
	}
	assert.Contains(t, out.String(), "Copied to clipboard!")
	assert.Contains(t, out.String(), "Holding the clipboard")
}

func TestCopyCommandStopsHoldingOnCancel(t *testing.T) {
	board := newHeldBoard()
	ctx, cancel := context.WithCancel(context.Background())
	done, _ := runCopy(ctx, board)

	<-board.images
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("copy ignored cancellation")
	}
}

func TestCopyCommandHelpExplainsHold(t *testing.T) {
	cmd := copyCommand(testConfig(t))
	assert.Contains(t, cmd.Long, "another program takes over the clipboard")
}
