package qr

import (
	"errors"
	"strings"
)

var ErrInvalidLevel = errors.New("invalid error correction level")

// Level is the error-correction tier. Higher tiers trade data capacity for
// redundancy.
type Level string

const (
	LevelLow      Level = "L"
	LevelMedium   Level = "M"
	LevelQuartile Level = "Q"
	LevelHigh     Level = "H"

	MaxLevel     = LevelHigh
	DefaultLevel = LevelHigh
)

var Levels = []Level{LevelLow, LevelMedium, LevelQuartile, LevelHigh}

func ParseLevel(raw string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(raw)))
	if !l.Valid() {
		return "", ErrInvalidLevel
	}
	return l, nil
}

func (l Level) Valid() bool {
	return l.rank() >= 0
}

func (l Level) rank() int {
	for i, candidate := range Levels {
		if candidate == l {
			return i
		}
	}
	return -1
}

func (l Level) Less(other Level) bool {
	return l.rank() < other.rank()
}

func (l Level) Label() string {
	switch l {
	case LevelLow:
		return "Low (7%)"
	case LevelMedium:
		return "Medium (15%)"
	case LevelQuartile:
		return "Quartile (25%)"
	case LevelHigh:
		return "High (30%)"
	default:
		return string(l)
	}
}
