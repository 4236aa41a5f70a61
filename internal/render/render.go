// Package render produces the vector QR document for a configuration.
package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"

	"github.com/skip2/go-qrcode"

	"qrforge/internal/blob"
	"qrforge/internal/qr"
)

const MIMEType = "image/svg+xml"

// Document is the serialized SVG for one configuration. It has no identity of
// its own and is rebuilt whenever the configuration changes.
type Document struct {
	SVG     []byte
	Size    int
	Modules int
}

func (d Document) Empty() bool {
	return len(d.SVG) == 0
}

// Logo placement in module units, relative to the full grid including the
// quiet zone.
type placement struct {
	x, y, w, h float64
}

func Render(cfg qr.Config, logos blob.Resolver) (Document, error) {
	if err := cfg.Validate(); err != nil {
		return Document{}, err
	}

	code, err := qrcode.New(cfg.Payload(), recoveryLevel(cfg.Level))
	if err != nil {
		return Document{}, fmt.Errorf("encode payload: %w", err)
	}
	cells := copyBitmap(code.Bitmap())
	n := len(cells)

	var (
		logo    blob.Blob
		overlay *placement
	)
	if cfg.HasLogo() {
		if logos == nil {
			return Document{}, fmt.Errorf("resolve logo: %w", blob.ErrNotFound)
		}
		logo, err = logos.Resolve(cfg.Logo)
		if err != nil {
			return Document{}, fmt.Errorf("resolve logo: %w", err)
		}
		p := place(n, cfg.Size, cfg.LogoEdge())
		excavate(cells, p)
		overlay = &p
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		cfg.Size, cfg.Size, n, n)
	fmt.Fprintf(&buf, `<path fill="%s" d="M0 0h%dv%dH0z"/>`, cfg.Background, n, n)
	fmt.Fprintf(&buf, `<path fill="%s" d="%s"/>`, cfg.Foreground, modulePath(cells))
	if overlay != nil {
		buf.WriteString(`<image href="`)
		_ = xml.EscapeText(&buf, []byte(blob.DataURL(logo)))
		fmt.Fprintf(&buf, `" x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="none"/>`,
			num(overlay.x), num(overlay.y), num(overlay.w), num(overlay.h))
	}
	buf.WriteString(`</svg>`)

	return Document{SVG: buf.Bytes(), Size: cfg.Size, Modules: n}, nil
}

func recoveryLevel(l qr.Level) qrcode.RecoveryLevel {
	switch l {
	case qr.LevelLow:
		return qrcode.Low
	case qr.LevelMedium:
		return qrcode.Medium
	case qr.LevelQuartile:
		return qrcode.High
	default:
		return qrcode.Highest
	}
}

func copyBitmap(src [][]bool) [][]bool {
	out := make([][]bool, len(src))
	for y, row := range src {
		out[y] = append([]bool(nil), row...)
	}
	return out
}

// place centers a logo of edge pixels on an n-module grid rendered at size pixels.
func place(n, size, edge int) placement {
	scale := float64(n) / float64(size)
	w := float64(edge) * scale
	offset := (float64(n) - w) / 2
	return placement{x: offset, y: offset, w: w, h: w}
}

// excavate clears every module the logo touches, even partially.
func excavate(cells [][]bool, p placement) {
	x0 := int(math.Floor(p.x))
	y0 := int(math.Floor(p.y))
	x1 := x0 + int(math.Ceil(p.w+p.x-float64(x0)))
	y1 := y0 + int(math.Ceil(p.h+p.y-float64(y0)))

	for y := max(y0, 0); y < min(y1, len(cells)); y++ {
		row := cells[y]
		for x := max(x0, 0); x < min(x1, len(row)); x++ {
			row[x] = false
		}
	}
}

// modulePath emits one rectangle per horizontal run of dark modules.
func modulePath(cells [][]bool) string {
	var buf bytes.Buffer
	for y, row := range cells {
		start := -1
		for x := 0; x <= len(row); x++ {
			dark := x < len(row) && row[x]
			switch {
			case dark && start < 0:
				start = x
			case !dark && start >= 0:
				fmt.Fprintf(&buf, "M%d %dh%dv1H%dz", start, y, x-start, start)
				start = -1
			}
		}
	}
	return buf.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
