package qr

import (
	"errors"
	"strings"
)

var ErrUnknownTheme = errors.New("unknown theme")

type Theme struct {
	ID         string
	Name       string
	Foreground Color
	Background Color
}

const DefaultTheme = "midnight"

var Themes = []Theme{
	{ID: "midnight", Name: "Midnight", Foreground: "#818cf8", Background: "#ffffff"},
	{ID: "light", Name: "Light", Foreground: "#4f46e5", Background: "#ffffff"},
	{ID: "ocean", Name: "Ocean", Foreground: "#22d3ee", Background: "#ffffff"},
	{ID: "sunset", Name: "Sunset", Foreground: "#f97316", Background: "#ffffff"},
}

func LookupTheme(id string) (Theme, error) {
	want := strings.ToLower(strings.TrimSpace(id))
	for _, t := range Themes {
		if t.ID == want {
			return t, nil
		}
	}
	return Theme{}, ErrUnknownTheme
}

// ThemeOrDefault falls back to the midnight palette for unknown ids.
func ThemeOrDefault(id string) Theme {
	if t, err := LookupTheme(id); err == nil {
		return t
	}
	return Themes[0]
}
