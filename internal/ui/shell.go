// Package ui is the desktop shell: it edits the studio state, previews the
// document and triggers exports.
package ui

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog"

	"qrforge/internal/export"
	"qrforge/internal/qr"
	"qrforge/internal/raster"
	"qrforge/internal/render"
	"qrforge/internal/studio"
)

const defaultToastDuration = 2 * time.Second

var logoExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}

type Shell struct {
	win      fyne.Window
	state    *studio.State
	pipeline *export.Pipeline
	logger   zerolog.Logger

	text         *widget.Entry
	themeButtons map[string]*widget.Button
	sizeSlider   *widget.Slider
	sizeLabel    *widget.Label
	levelRadio   *widget.RadioGroup
	fgBtn        *widget.Button
	bgBtn        *widget.Button
	resetBtn     *widget.Button
	logoLabel    *widget.Label
	logoBtn      *widget.Button
	removeLogo   *widget.Button
	preview      *canvas.Image
	pngBtn       *widget.Button
	svgBtn       *widget.Button
	copyBtn      *widget.Button
	toast        *widget.Label
	errLabel     *widget.Label

	toastDuration time.Duration
	toastGen      int
}

func New(win fyne.Window, state *studio.State, pipeline *export.Pipeline, logger zerolog.Logger) *Shell {
	s := &Shell{
		win:           win,
		state:         state,
		pipeline:      pipeline,
		logger:        logger,
		themeButtons:  map[string]*widget.Button{},
		toastDuration: defaultToastDuration,
	}
	s.build()
	s.refresh()
	return s
}

func (s *Shell) build() {
	cfg := s.state.Config()

	s.text = widget.NewEntry()
	s.text.SetPlaceHolder("Enter text or URL")
	s.text.SetText(cfg.Text)
	s.text.OnChanged = func(text string) {
		s.state.SetText(text)
		s.refresh()
	}

	for _, t := range qr.Themes {
		id := t.ID
		s.themeButtons[id] = widget.NewButton(t.Name, func() {
			if err := s.state.SetTheme(id); err != nil {
				s.logger.Warn().Err(err).Msg("set theme")
				return
			}
			s.refresh()
		})
	}

	s.sizeLabel = widget.NewLabel("")
	s.sizeSlider = widget.NewSlider(qr.MinSize, qr.MaxSize)
	s.sizeSlider.Step = qr.SizeStep
	s.sizeSlider.SetValue(float64(cfg.Size))
	s.sizeSlider.OnChanged = func(v float64) {
		s.state.SetSize(int(v))
		s.refresh()
	}

	labels := make([]string, 0, len(qr.Levels))
	for _, l := range qr.Levels {
		labels = append(labels, l.Label())
	}
	s.levelRadio = widget.NewRadioGroup(labels, func(label string) {
		level, ok := levelForLabel(label)
		if !ok || level == s.state.Config().Level {
			return
		}
		if err := s.state.SetLevel(level); err != nil {
			s.logger.Warn().Err(err).Msg("set level")
			return
		}
		s.refresh()
	})
	s.levelRadio.Horizontal = true
	s.levelRadio.Required = true

	s.fgBtn = widget.NewButton("Foreground", func() {
		s.pickColor("Foreground", s.state.SetForeground)
	})
	s.bgBtn = widget.NewButton("Background", func() {
		s.pickColor("Background", s.state.SetBackground)
	})
	s.resetBtn = widget.NewButton("Reset", func() {
		s.state.ResetColors()
		s.refresh()
	})

	s.logoLabel = widget.NewLabel("")
	s.logoBtn = widget.NewButton("Add logo", s.chooseLogo)
	s.removeLogo = widget.NewButton("Remove", func() {
		s.state.RemoveLogo()
		s.refresh()
	})

	s.preview = canvas.NewImageFromImage(nil)
	s.preview.FillMode = canvas.ImageFillContain
	s.preview.SetMinSize(fyne.NewSize(256, 256))

	s.pngBtn = widget.NewButton("PNG", func() { s.exportPNG() })
	s.svgBtn = widget.NewButton("SVG", s.exportSVG)
	s.copyBtn = widget.NewButton("Copy", func() { s.copyToClipboard() })

	s.toast = widget.NewLabel("")
	s.toast.Alignment = fyne.TextAlignCenter

	s.errLabel = widget.NewLabel("")
	s.errLabel.Wrapping = fyne.TextWrapWord
	s.errLabel.Importance = widget.DangerImportance
	s.errLabel.Hide()
}

// Content lays out the shell for a window.
func (s *Shell) Content() fyne.CanvasObject {
	themes := container.NewGridWithColumns(len(qr.Themes))
	for _, t := range qr.Themes {
		themes.Add(s.themeButtons[t.ID])
	}

	title := widget.NewLabel("QR Forge")
	title.TextStyle = fyne.TextStyle{Bold: true}

	form := container.NewVBox(
		title,
		s.text,
		widget.NewLabel("Theme"),
		themes,
		container.NewBorder(nil, nil, widget.NewLabel("Size"), s.sizeLabel, s.sizeSlider),
		widget.NewLabel("Error correction"),
		s.levelRadio,
		container.NewGridWithColumns(3, s.fgBtn, s.bgBtn, s.resetBtn),
		container.NewBorder(nil, nil, nil, container.NewHBox(s.logoBtn, s.removeLogo), s.logoLabel),
	)
	actions := container.NewGridWithColumns(3, s.pngBtn, s.svgBtn, s.copyBtn)
	right := container.NewBorder(nil, container.NewVBox(s.errLabel, actions, s.toast), nil, nil, container.NewCenter(s.preview))

	return container.NewPadded(container.NewGridWithColumns(2, form, right))
}

// refresh brings every widget in line with the studio state. Must run on the
// fyne main goroutine.
func (s *Shell) refresh() {
	cfg, doc := s.state.Current()
	renderErr := s.state.Err()
	theme := s.state.Theme()

	for id, btn := range s.themeButtons {
		if id == theme.ID {
			btn.Importance = widget.HighImportance
		} else {
			btn.Importance = widget.MediumImportance
		}
		btn.Refresh()
	}

	s.sizeLabel.SetText(fmt.Sprintf("%d × %d px", cfg.Size, cfg.Size))
	if s.levelRadio.Selected != cfg.Level.Label() {
		s.levelRadio.SetSelected(cfg.Level.Label())
	}

	if s.state.HasCustomColors() {
		s.resetBtn.Enable()
	} else {
		s.resetBtn.Disable()
	}

	if name := s.state.LogoName(); name != "" {
		s.logoLabel.SetText("Logo: " + name)
		s.logoBtn.SetText("Change logo")
		s.removeLogo.Show()
	} else {
		s.logoLabel.SetText("No logo")
		s.logoBtn.SetText("Add logo")
		s.removeLogo.Hide()
	}

	exportable := !cfg.Empty() && !doc.Empty() && renderErr == nil
	for _, btn := range []*widget.Button{s.pngBtn, s.svgBtn, s.copyBtn} {
		if exportable {
			btn.Enable()
		} else {
			btn.Disable()
		}
	}

	if renderErr != nil {
		s.errLabel.SetText("Cannot render: " + renderErr.Error())
		s.errLabel.Show()
	} else {
		s.errLabel.SetText("")
		s.errLabel.Hide()
	}

	s.refreshPreview(cfg, doc)
}

func (s *Shell) refreshPreview(cfg qr.Config, doc render.Document) {
	if doc.Empty() {
		s.preview.Image = nil
		s.preview.Refresh()
		return
	}
	img, err := raster.Compose(doc.SVG, doc.Size, cfg.Background.RGBA())
	if err != nil {
		s.logger.Warn().Err(err).Msg("preview render failed")
		return
	}
	s.preview.Image = img
	s.preview.Refresh()
}

func (s *Shell) pickColor(title string, apply func(string) error) {
	picker := dialog.NewColorPicker(title, "Pick a "+title+" color", func(c color.Color) {
		hex, ok := colorful.MakeColor(c)
		if !ok {
			return
		}
		if err := apply(hex.Hex()); err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		s.refresh()
	}, s.win)
	picker.Advanced = true
	picker.Show()
}

func (s *Shell) chooseLogo() {
	open := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		data, err := io.ReadAll(reader)
		if err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		if err := s.attachLogo(reader.URI().Name(), data); err != nil {
			dialog.ShowError(err, s.win)
		}
	}, s.win)
	open.SetFilter(storage.NewExtensionFileFilter(logoExtensions))
	open.Show()
}

func (s *Shell) attachLogo(name string, data []byte) error {
	if err := s.state.AttachLogo(name, data); err != nil {
		return err
	}
	s.refresh()
	return nil
}

func (s *Shell) exportSVG() {
	s.report(s.pipeline.ExportSVG())
}

// exportPNG and copyToClipboard report on the main goroutine once the
// composition finishes; the returned channel closes after that.
func (s *Shell) exportPNG() <-chan struct{} {
	return s.await(s.pipeline.ExportPNG(context.Background()))
}

func (s *Shell) copyToClipboard() <-chan struct{} {
	return s.await(s.pipeline.CopyToClipboard(context.Background()))
}

func (s *Shell) await(f *export.Future[export.Result]) <-chan struct{} {
	done := make(chan struct{})
	f.Then(func(res export.Result) {
		defer close(done)
		fyne.DoAndWait(func() {
			s.report(res)
		})
	})
	return done
}

func (s *Shell) report(res export.Result) {
	if res.Skipped {
		return
	}
	if res.Err != nil {
		s.logger.Warn().Err(res.Err).Str("kind", string(res.Kind)).Msg("export failed")
	}
	if res.Toast != "" {
		s.showToast(res.Toast)
	}
}

func (s *Shell) showToast(msg string) {
	s.toastGen++
	gen := s.toastGen
	s.toast.SetText(msg)
	time.AfterFunc(s.toastDuration, func() {
		fyne.Do(func() {
			if s.toastGen == gen {
				s.toast.SetText("")
			}
		})
	})
}

func levelForLabel(label string) (qr.Level, bool) {
	for _, l := range qr.Levels {
		if l.Label() == label {
			return l, true
		}
	}
	return "", false
}
