package export

const (
	PNGFileName = "qr-code.png"
	SVGFileName = "qr-code.svg"

	ToastPNG        = "PNG downloaded!"
	ToastSVG        = "SVG downloaded!"
	ToastCopied     = "Copied to clipboard!"
	ToastCopyFailed = "Copy failed"
	ToastPNGFailed  = "PNG export failed"
	ToastSVGFailed  = "SVG export failed"
)

type Kind string

const (
	KindPNG       Kind = "png"
	KindSVG       Kind = "svg"
	KindClipboard Kind = "clipboard"
)

type Artifact struct {
	Name string
	Type string
	Data []byte
}

// Result is what an export hands back to the shell. Skipped results carry no
// toast; failures are never fatal and always carry one.
type Result struct {
	Kind     Kind
	Artifact Artifact
	Toast    string
	Skipped  bool
	Err      error
}

func (r Result) Outcome() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Err != nil:
		return "failed"
	default:
		return "ok"
	}
}
