package qr

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var ErrInvalidColor = errors.New("invalid color")

// Color is a normalized #rrggbb hex color.
type Color string

func ParseColor(raw string) (Color, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidColor
	}
	if !strings.HasPrefix(trimmed, "#") {
		trimmed = "#" + trimmed
	}
	trimmed = strings.ToLower(trimmed)
	if len(trimmed) != 4 && len(trimmed) != 7 {
		return "", fmt.Errorf("%q: %w", raw, ErrInvalidColor)
	}
	c, err := colorful.Hex(trimmed)
	if err != nil {
		return "", fmt.Errorf("%q: %w", raw, ErrInvalidColor)
	}
	return Color(c.Hex()), nil
}

// RGBA returns the opaque color value, black when the hex is malformed.
func (c Color) RGBA() color.RGBA {
	parsed, err := colorful.Hex(string(c))
	if err != nil {
		return color.RGBA{A: 0xff}
	}
	r, g, b := parsed.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func (c Color) String() string {
	return string(c)
}
