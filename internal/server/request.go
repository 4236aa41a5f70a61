package server

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"qrforge/internal/blob"
	"qrforge/internal/qr"
	"qrforge/internal/studio"
)

// qrRequest carries the options of one export request. Empty fields fall back
// to the configured defaults.
type qrRequest struct {
	Text       string `json:"text"`
	Size       int    `json:"size,omitempty"`
	Level      string `json:"level,omitempty"`
	Theme      string `json:"theme,omitempty"`
	Foreground string `json:"fg,omitempty"`
	Background string `json:"bg,omitempty"`
	LogoName   string `json:"logo_name,omitempty"`
	LogoBase64 string `json:"logo_base64,omitempty"`
}

func requestFromQuery(q url.Values) (qrRequest, error) {
	req := qrRequest{
		Text:       q.Get("text"),
		Level:      q.Get("level"),
		Theme:      q.Get("theme"),
		Foreground: q.Get("fg"),
		Background: q.Get("bg"),
	}
	if raw := strings.TrimSpace(q.Get("size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return qrRequest{}, fmt.Errorf("size %q: %w", raw, qr.ErrSizeOutOfRange)
		}
		req.Size = size
	}
	return req, nil
}

// build applies req on top of defaults to a fresh studio. The caller owns the
// returned state and must Close it.
func (req qrRequest) build(defaults studio.Defaults, logger zerolog.Logger) (*studio.State, *blob.Store, error) {
	if req.Size != 0 {
		if err := qr.ValidateSize(req.Size); err != nil {
			return nil, nil, err
		}
	}

	store := blob.NewStore()
	defaults.Text = req.Text
	s := studio.New(store, defaults, logger)

	apply := func() error {
		if req.Size != 0 {
			s.SetSize(req.Size)
		}
		if strings.TrimSpace(req.Theme) != "" {
			if err := s.SetTheme(req.Theme); err != nil {
				return err
			}
		}
		if strings.TrimSpace(req.Level) != "" {
			level, err := qr.ParseLevel(req.Level)
			if err != nil {
				return fmt.Errorf("level %q: %w", req.Level, err)
			}
			if err := s.SetLevel(level); err != nil {
				return err
			}
		}
		if strings.TrimSpace(req.Foreground) != "" {
			if err := s.SetForeground(req.Foreground); err != nil {
				return err
			}
		}
		if strings.TrimSpace(req.Background) != "" {
			if err := s.SetBackground(req.Background); err != nil {
				return err
			}
		}
		if strings.TrimSpace(req.LogoBase64) != "" {
			data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(req.LogoBase64))
			if err != nil {
				return fmt.Errorf("logo_base64: %w", studio.ErrUnsupportedImage)
			}
			name := req.LogoName
			if name == "" {
				name = "logo"
			}
			if err := s.AttachLogo(name, data); err != nil {
				return err
			}
		}
		return nil
	}
	if err := apply(); err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, store, nil
}
