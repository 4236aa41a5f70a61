package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"qrforge/internal/blob"
)

// Downloader saves whatever href points at under the given file name.
type Downloader interface {
	Download(name, href string) error
}

// DirDownloader writes downloads into a directory, replacing files with the
// same name.
type DirDownloader struct {
	Dir      string
	Resolver blob.Resolver
	Logger   zerolog.Logger
}

func (d DirDownloader) Download(name, href string) error {
	if strings.TrimSpace(d.Dir) == "" {
		return fmt.Errorf("download dir is empty")
	}
	b, err := d.Resolver.Resolve(href)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", name, err)
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	path := filepath.Join(d.Dir, filepath.Base(name))
	if err := writeFile(path, b.Data, d.Logger); err != nil {
		return err
	}
	d.Logger.Info().Str("path", path).Int("bytes", b.Size()).Str("type", b.Type).Msg("download saved")
	return nil
}
