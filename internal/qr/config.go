package qr

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MinSize     = 128
	MaxSize     = 512
	SizeStep    = 32
	DefaultSize = 256
)

var (
	ErrEmptyPayload   = errors.New("payload text is empty")
	ErrSizeOutOfRange = fmt.Errorf("size must be between %d and %d", MinSize, MaxSize)
)

// Config is the set of parameters that deterministically renders one QR symbol.
// Values are copied by callers; a Config is never shared mutably.
type Config struct {
	Text       string
	Size       int
	Level      Level
	Foreground Color
	Background Color
	// Logo is the handle URL of the attached logo, empty when none.
	Logo string
}

// Payload returns the text that is actually encoded.
func (c Config) Payload() string {
	return strings.TrimSpace(c.Text)
}

func (c Config) Empty() bool {
	return c.Payload() == ""
}

func (c Config) HasLogo() bool {
	return strings.TrimSpace(c.Logo) != ""
}

// LogoEdge is the logo width and height in pixels for the configured size.
func (c Config) LogoEdge() int {
	return int(float64(c.Size)*0.2 + 0.5)
}

func (c Config) Validate() error {
	if c.Empty() {
		return ErrEmptyPayload
	}
	if err := ValidateSize(c.Size); err != nil {
		return err
	}
	if !c.Level.Valid() {
		return fmt.Errorf("level %q: %w", c.Level, ErrInvalidLevel)
	}
	if _, err := ParseColor(string(c.Foreground)); err != nil {
		return fmt.Errorf("foreground: %w", err)
	}
	if _, err := ParseColor(string(c.Background)); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	return nil
}

func ValidateSize(size int) error {
	if size < MinSize || size > MaxSize {
		return fmt.Errorf("size %d: %w", size, ErrSizeOutOfRange)
	}
	return nil
}

// SnapSize rounds size to the nearest slider step inside the supported range.
func SnapSize(size int) int {
	if size <= MinSize {
		return MinSize
	}
	if size >= MaxSize {
		return MaxSize
	}
	steps := (size - MinSize + SizeStep/2) / SizeStep
	return MinSize + steps*SizeStep
}
