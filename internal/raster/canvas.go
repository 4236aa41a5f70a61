package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

const MIMEType = "image/png"

// Compose fills a size×size canvas with bg and paints the decoded document on
// top. The fill matters because the document may leave its background
// transparent.
func Compose(svg []byte, size int, bg color.Color) (image.Image, error) {
	drawn, err := Decode(svg, size)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(size, size)
	dc.SetColor(bg)
	dc.Clear()
	dc.DrawImage(drawn, 0, 0)
	return dc.Image(), nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	dc := gg.NewContextForImage(img)
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
