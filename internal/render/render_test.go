package render

import (
	"bytes"
	"encoding/xml"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrforge/internal/blob"
	"qrforge/internal/qr"
)

func baseConfig() qr.Config {
	return qr.Config{
		Text:       "https://example.com",
		Size:       256,
		Level:      qr.LevelHigh,
		Foreground: "#818cf8",
		Background: "#ffffff",
	}
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(1, 1, color.RGBA{R: 0xff, A: 0xff})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type svgRoot struct {
	Width   string `xml:"width,attr"`
	Height  string `xml:"height,attr"`
	ViewBox string `xml:"viewBox,attr"`
	Paths   []struct {
		Fill string `xml:"fill,attr"`
	} `xml:"path"`
	Images []struct {
		Href string `xml:"href,attr"`
	} `xml:"image"`
}

func parse(t *testing.T, doc Document) svgRoot {
	t.Helper()
	var root svgRoot
	require.NoError(t, xml.Unmarshal(doc.SVG, &root))
	return root
}

func TestRenderDeclaresConfiguredSize(t *testing.T) {
	for _, size := range []int{qr.MinSize, 256, 384, qr.MaxSize} {
		cfg := baseConfig()
		cfg.Size = size
		doc, err := Render(cfg, nil)
		require.NoError(t, err)

		root := parse(t, doc)
		assert.Equal(t, strconv.Itoa(size), root.Width)
		assert.Equal(t, strconv.Itoa(size), root.Height)
		assert.Equal(t, size, doc.Size)
		require.Len(t, root.Paths, 2)
		assert.Equal(t, "#ffffff", root.Paths[0].Fill)
		assert.Equal(t, "#818cf8", root.Paths[1].Fill)
		assert.Empty(t, root.Images)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	a, err := Render(baseConfig(), nil)
	require.NoError(t, err)
	b, err := Render(baseConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, a.SVG, b.SVG)
}

func TestRenderRejectsEmptyPayload(t *testing.T) {
	cfg := baseConfig()
	cfg.Text = "   "
	_, err := Render(cfg, nil)
	assert.ErrorIs(t, err, qr.ErrEmptyPayload)
}

func TestRenderLevelChangesSymbol(t *testing.T) {
	low := baseConfig()
	low.Level = qr.LevelLow
	lowDoc, err := Render(low, nil)
	require.NoError(t, err)

	highDoc, err := Render(baseConfig(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, lowDoc.SVG, highDoc.SVG)
	assert.GreaterOrEqual(t, highDoc.Modules, lowDoc.Modules)
}

func TestRenderEmbedsLogoAsDataURL(t *testing.T) {
	store := blob.NewStore()
	cfg := baseConfig()
	cfg.Logo = store.CreateObjectURL(blob.Blob{Data: tinyPNG(t), Type: "image/png"})

	doc, err := Render(cfg, store)
	require.NoError(t, err)

	root := parse(t, doc)
	require.Len(t, root.Images, 1)
	embedded, err := blob.ParseDataURL(root.Images[0].Href)
	require.NoError(t, err)
	assert.Equal(t, "image/png", embedded.Type)
}

func TestRenderUnknownLogoHandle(t *testing.T) {
	cfg := baseConfig()
	cfg.Logo = "blob:qrforge/missing"
	_, err := Render(cfg, blob.NewStore())
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestExcavateClearsCenterBlock(t *testing.T) {
	n := 33
	cells := make([][]bool, n)
	for y := range cells {
		cells[y] = make([]bool, n)
		for x := range cells[y] {
			cells[y][x] = true
		}
	}

	p := place(n, 256, 51)
	excavate(cells, p)

	center := n / 2
	assert.False(t, cells[center][center])
	assert.True(t, cells[0][0])
	assert.True(t, cells[n-1][n-1])

	cleared := 0
	for _, row := range cells {
		for _, v := range row {
			if !v {
				cleared++
			}
		}
	}
	// 51px of 256px on 33 modules is ~6.6 modules, touching 7 per side.
	assert.Equal(t, 49, cleared)
}

func TestModulePathRuns(t *testing.T) {
	cells := [][]bool{
		{true, true, false, true},
		{false, false, false, false},
	}
	assert.Equal(t, "M0 0h2v1H0zM3 0h1v1H3z", modulePath(cells))
}
