// Package raster paints vector QR documents onto an off-screen canvas.
package raster

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"qrforge/internal/blob"
)

var ErrInvalidDocument = errors.New("invalid svg document")

type embeddedImage struct {
	href       string
	x, y, w, h float64
}

// Decode turns an SVG document into a drawable size×size image. Paths go
// through oksvg; <image> elements carrying data URLs are scaled in on top.
func Decode(svg []byte, size int) (*image.RGBA, error) {
	if len(svg) == 0 || size <= 0 {
		return nil, ErrInvalidDocument
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	viewBox, images, err := scanImages(svg)
	if err != nil {
		return nil, err
	}
	if viewBox <= 0 {
		viewBox = float64(size)
	}
	scale := float64(size) / viewBox
	for _, el := range images {
		if err := drawEmbedded(dst, el, scale); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func scanImages(svg []byte) (float64, []embeddedImage, error) {
	var (
		viewBox float64
		images  []embeddedImage
	)
	dec := xml.NewDecoder(bytes.NewReader(svg))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "svg":
			viewBox = viewBoxWidth(attr(se, "viewBox"))
		case "image":
			images = append(images, embeddedImage{
				href: attr(se, "href"),
				x:    floatAttr(se, "x"),
				y:    floatAttr(se, "y"),
				w:    floatAttr(se, "width"),
				h:    floatAttr(se, "height"),
			})
		}
	}
	return viewBox, images, nil
}

func drawEmbedded(dst draw.Image, el embeddedImage, scale float64) error {
	if !strings.HasPrefix(el.href, "data:") || el.w <= 0 || el.h <= 0 {
		return nil
	}
	b, err := blob.ParseDataURL(el.href)
	if err != nil {
		return fmt.Errorf("embedded image: %w", err)
	}
	src, _, err := image.Decode(bytes.NewReader(b.Data))
	if err != nil {
		return fmt.Errorf("decode embedded image: %w", err)
	}

	rect := image.Rect(
		int(el.x*scale+0.5),
		int(el.y*scale+0.5),
		int((el.x+el.w)*scale+0.5),
		int((el.y+el.h)*scale+0.5),
	)
	xdraw.CatmullRom.Scale(dst, rect, src, src.Bounds(), xdraw.Over, nil)
	return nil
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func floatAttr(se xml.StartElement, name string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(attr(se, name)), 64)
	if err != nil {
		return 0
	}
	return v
}

func viewBoxWidth(raw string) float64 {
	fields := strings.Fields(strings.ReplaceAll(raw, ",", " "))
	if len(fields) != 4 {
		return 0
	}
	w, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return 0
	}
	return w
}
