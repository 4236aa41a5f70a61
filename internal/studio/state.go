// Package studio holds the editable QR configuration behind the shells and
// keeps the rendered document in step with it.
package studio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"qrforge/internal/blob"
	"qrforge/internal/qr"
	"qrforge/internal/render"
)

var ErrUnsupportedImage = errors.New("unsupported logo image")

type Defaults struct {
	Text  string
	Theme string
	Size  int
	Level qr.Level
}

// State is safe for concurrent use. Every mutation re-renders the document so
// Current always returns a matching pair.
type State struct {
	mu     sync.RWMutex
	store  *blob.Store
	logo   *blob.Slot
	logger zerolog.Logger

	text     string
	theme    qr.Theme
	size     int
	level    qr.Level
	fg, bg   qr.Color
	logoName string

	doc       render.Document
	renderErr error
}

func New(store *blob.Store, d Defaults, logger zerolog.Logger) *State {
	level := d.Level
	if !level.Valid() {
		level = qr.DefaultLevel
	}
	size := d.Size
	if size == 0 {
		size = qr.DefaultSize
	}
	s := &State{
		store:  store,
		logo:   blob.NewSlot(store),
		logger: logger,
		text:   d.Text,
		theme:  qr.ThemeOrDefault(d.Theme),
		size:   qr.SnapSize(size),
		level:  level,
	}
	s.rerender()
	return s
}

// Current returns the configuration and the document rendered from it.
func (s *State) Current() (qr.Config, render.Document) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config(), s.doc
}

func (s *State) Config() qr.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config()
}

// Err is the last rendering error, nil when the document is current.
func (s *State) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.renderErr
}

func (s *State) Theme() qr.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

func (s *State) LogoName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logoName
}

// HasCustomColors reports whether either color overrides the theme.
func (s *State) HasCustomColors() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fg != "" || s.bg != ""
}

func (s *State) SetText(text string) {
	s.update(func() { s.text = text })
}

func (s *State) SetTheme(id string) error {
	theme, err := qr.LookupTheme(id)
	if err != nil {
		return fmt.Errorf("theme %q: %w", id, err)
	}
	s.update(func() { s.theme = theme })
	return nil
}

// SetSize snaps size onto the slider grid and returns the value applied.
func (s *State) SetSize(size int) int {
	size = qr.SnapSize(size)
	s.update(func() { s.size = size })
	return size
}

func (s *State) SetLevel(level qr.Level) error {
	if !level.Valid() {
		return fmt.Errorf("level %q: %w", level, qr.ErrInvalidLevel)
	}
	s.update(func() { s.level = level })
	return nil
}

func (s *State) SetForeground(raw string) error {
	c, err := qr.ParseColor(raw)
	if err != nil {
		return fmt.Errorf("foreground: %w", err)
	}
	s.update(func() { s.fg = c })
	return nil
}

func (s *State) SetBackground(raw string) error {
	c, err := qr.ParseColor(raw)
	if err != nil {
		return fmt.Errorf("background: %w", err)
	}
	s.update(func() { s.bg = c })
	return nil
}

// ResetColors drops both overrides so the theme palette applies again.
func (s *State) ResetColors() {
	s.update(func() { s.fg, s.bg = "", "" })
}

// AttachLogo replaces the current logo. The previous handle is released before
// the new one is created, and the level is raised to the maximum tier.
func (s *State) AttachLogo(name string, data []byte) error {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: %w", name, ErrUnsupportedImage)
	}

	s.update(func() {
		s.logo.Replace(blob.Blob{Data: data, Type: "image/" + strings.ToLower(format)})
		s.logoName = name
		if s.level != qr.MaxLevel {
			s.logger.Info().Str("from", string(s.level)).Msg("logo attached, raising error correction to H")
			s.level = qr.MaxLevel
		}
	})
	return nil
}

// RemoveLogo releases the logo handle. The level is left as is.
func (s *State) RemoveLogo() {
	s.update(func() {
		s.logo.Clear()
		s.logoName = ""
	})
}

// Close releases the logo handle.
func (s *State) Close() {
	s.logo.Clear()
}

func (s *State) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	s.rerender()
}

func (s *State) config() qr.Config {
	fg, bg := s.theme.Foreground, s.theme.Background
	if s.fg != "" {
		fg = s.fg
	}
	if s.bg != "" {
		bg = s.bg
	}
	return qr.Config{
		Text:       s.text,
		Size:       s.size,
		Level:      s.level,
		Foreground: fg,
		Background: bg,
		Logo:       s.logo.URL(),
	}
}

// rerender must be called with mu held.
func (s *State) rerender() {
	cfg := s.config()
	if cfg.Empty() {
		s.doc, s.renderErr = render.Document{}, nil
		return
	}
	doc, err := render.Render(cfg, s.store)
	if err != nil {
		s.logger.Warn().Err(err).Msg("render failed")
		s.doc, s.renderErr = render.Document{}, err
		return
	}
	s.doc, s.renderErr = doc, nil
}
