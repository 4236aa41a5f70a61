// Package clipboard writes PNG images to the system clipboard.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	xclipboard "golang.design/x/clipboard"
)

var (
	ErrUnavailable     = errors.New("clipboard unavailable")
	ErrUnsupportedType = errors.New("clipboard accepts image/png only")
	ErrNotOwner        = errors.New("clipboard was not written by this process")
)

var (
	initClipboard  = xclipboard.Init
	writeClipboard = func(data []byte) <-chan struct{} { return xclipboard.Write(xclipboard.FmtImage, data) }
)

// System is the process clipboard. The zero value initializes lazily on the
// first write; an initialization failure is remembered.
//
// On X11 the image is served by this process, so it stays on the clipboard
// only while the process runs. Short-lived callers should Hold after writing.
type System struct {
	once    sync.Once
	initErr error

	mu       sync.Mutex
	replaced <-chan struct{}
}

func (s *System) WriteImage(ctx context.Context, mime string, data []byte) error {
	if mime != "image/png" {
		return fmt.Errorf("%s: %w", mime, ErrUnsupportedType)
	}
	if len(data) == 0 {
		return fmt.Errorf("empty image: %w", ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.once.Do(func() {
		if err := initClipboard(); err != nil {
			s.initErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	})
	if s.initErr != nil {
		return s.initErr
	}

	replaced := writeClipboard(data)
	s.mu.Lock()
	s.replaced = replaced
	s.mu.Unlock()
	return nil
}

// Replaced closes once another program takes over the clipboard after the
// last successful write. It is nil before any write.
func (s *System) Replaced() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaced
}

// Hold blocks until the last written image is replaced or ctx is done.
func (s *System) Hold(ctx context.Context) error {
	replaced := s.Replaced()
	if replaced == nil {
		return ErrNotOwner
	}
	select {
	case <-replaced:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
