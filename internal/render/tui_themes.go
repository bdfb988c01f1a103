package render

import (
	"github.com/charmbracelet/lipgloss"
)

// TUITheme defines the color scheme for the chat interface
type TUITheme struct {
	Name        string
	Description string

	Border lipgloss.Color

	// Message colors
	User    lipgloss.Color
	Reply   lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	// Accent is used for the title and the spinner
	Accent lipgloss.Color

	Text    lipgloss.Color
	TextDim lipgloss.Color
}

// Built-in TUI themes
var (
	// TokyoNightTheme is the default dark theme
	TokyoNightTheme = TUITheme{
		Name:        "tokyonight",
		Description: "Tokyo Night - Dark theme with blue accents",

		Border: lipgloss.Color("#414868"),

		User:    lipgloss.Color("#7aa2f7"),
		Reply:   lipgloss.Color("#9ece6a"),
		Warning: lipgloss.Color("#e0af68"),
		Error:   lipgloss.Color("#f7768e"),

		Accent: lipgloss.Color("#bb9af7"),

		Text:    lipgloss.Color("#c0caf5"),
		TextDim: lipgloss.Color("#565f89"),
	}

	// NordTheme is based on the Nord color palette
	NordTheme = TUITheme{
		Name:        "nord",
		Description: "Nord - Arctic-inspired theme with cool tones",

		Border: lipgloss.Color("#4c566a"),

		User:    lipgloss.Color("#88c0d0"), // Frost
		Reply:   lipgloss.Color("#a3be8c"), // Aurora green
		Warning: lipgloss.Color("#ebcb8b"), // Aurora yellow
		Error:   lipgloss.Color("#bf616a"), // Aurora red

		Accent: lipgloss.Color("#b48ead"),

		Text:    lipgloss.Color("#eceff4"),
		TextDim: lipgloss.Color("#7b88a1"),
	}

	// LightTheme suits terminals with a light background
	LightTheme = TUITheme{
		Name:        "light",
		Description: "Light - High contrast on light backgrounds",

		Border: lipgloss.Color("#a0a1a7"),

		User:    lipgloss.Color("#4078f2"),
		Reply:   lipgloss.Color("#50a14f"),
		Warning: lipgloss.Color("#c18401"),
		Error:   lipgloss.Color("#e45649"),

		Accent: lipgloss.Color("#a626a4"),

		Text:    lipgloss.Color("#383a42"),
		TextDim: lipgloss.Color("#696c77"),
	}
)

// GetTUIThemeByName returns a TUI theme by its name
func GetTUIThemeByName(name string) (TUITheme, bool) {
	for _, t := range AvailableTUIThemes() {
		if t.Name == name {
			return t, true
		}
	}
	return TUITheme{}, false
}

// ResolveTUITheme returns the named theme, or the default when the name is unknown
func ResolveTUITheme(name string) TUITheme {
	if theme, ok := GetTUIThemeByName(name); ok {
		return theme
	}
	return TokyoNightTheme
}

// AvailableTUIThemes returns a list of all available TUI themes
func AvailableTUIThemes() []TUITheme {
	return []TUITheme{
		TokyoNightTheme,
		NordTheme,
		LightTheme,
	}
}

// TUIThemeNames returns just the theme names for selection
func TUIThemeNames() []string {
	themes := AvailableTUIThemes()
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}
