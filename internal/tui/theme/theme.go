// Package theme provides lipgloss style palettes for some nice well known themes, and the
// styles the httprun TUI builds from them.
package theme

import "github.com/charmbracelet/lipgloss"

// CatpuccinPalette is the colour palette for a Catpuccin theme.
// See https://catppuccin.com/palette/.
type CatpuccinPalette struct {
	Rosewater lipgloss.Color
	Flamingo  lipgloss.Color
	Pink      lipgloss.Color
	Mauve     lipgloss.Color
	Red       lipgloss.Color
	Maroon    lipgloss.Color
	Peach     lipgloss.Color
	Yellow    lipgloss.Color
	Green     lipgloss.Color
	Teal      lipgloss.Color
	Sky       lipgloss.Color
	Sapphire  lipgloss.Color
	Blue      lipgloss.Color
	Lavender  lipgloss.Color
	Text      lipgloss.Color
	Subtext1  lipgloss.Color
	Subtext0  lipgloss.Color
	Overlay2  lipgloss.Color
	Overlay1  lipgloss.Color
	Overlay0  lipgloss.Color
	Surface2  lipgloss.Color
	Surface1  lipgloss.Color
	Surface0  lipgloss.Color
	Base      lipgloss.Color
	Mantle    lipgloss.Color
	Crust     lipgloss.Color
}

// CatpuccinMacchiato is the Macchiato flavour of the Catpuccin palette.
var CatpuccinMacchiato = CatpuccinPalette{
	Rosewater: lipgloss.Color("#f4dbd6"),
	Flamingo:  lipgloss.Color("#f0c6c6"),
	Pink:      lipgloss.Color("#f5bde6"),
	Mauve:     lipgloss.Color("#c6a0f6"),
	Red:       lipgloss.Color("#ed8796"),
	Maroon:    lipgloss.Color("#ee99a0"),
	Peach:     lipgloss.Color("#f5a97f"),
	Yellow:    lipgloss.Color("#eed49f"),
	Green:     lipgloss.Color("#a6da95"),
	Teal:      lipgloss.Color("#8bd5ca"),
	Sky:       lipgloss.Color("#91d7e3"),
	Sapphire:  lipgloss.Color("#7dc4e4"),
	Blue:      lipgloss.Color("#8aadf4"),
	Lavender:  lipgloss.Color("#b7bdf8"),
	Text:      lipgloss.Color("#cad3f5"),
	Subtext1:  lipgloss.Color("#b8c0e0"),
	Subtext0:  lipgloss.Color("#a5adcb"),
	Overlay2:  lipgloss.Color("#939ab7"),
	Overlay1:  lipgloss.Color("#8087a2"),
	Overlay0:  lipgloss.Color("#6e738d"),
	Surface2:  lipgloss.Color("#5b6078"),
	Surface1:  lipgloss.Color("#494d64"),
	Surface0:  lipgloss.Color("#363a4f"),
	Base:      lipgloss.Color("#24273a"),
	Mantle:    lipgloss.Color("#1e2030"),
	Crust:     lipgloss.Color("#181926"),
}

// Styles are the lipgloss styles used across the TUI components.
type Styles struct {
	Title         lipgloss.Style // List titles
	NormalTitle   lipgloss.Style // An unselected item's title
	NormalDesc    lipgloss.Style // An unselected item's description
	SelectedTitle lipgloss.Style // The selected item's title
	SelectedDesc  lipgloss.Style // The selected item's description
	Directory     lipgloss.Style // Directories in the file picker
	File          lipgloss.Style // Allowed files in the file picker
	Disabled      lipgloss.Style // Files that cannot be picked
	Cursor        lipgloss.Style // The cursor
	Error         lipgloss.Style // Error messages
}

// New builds the [Styles] for a palette.
func New(palette CatpuccinPalette) Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Background(palette.Mauve).
			Foreground(palette.Crust).
			Bold(true).
			Padding(0, 1),
		NormalTitle: lipgloss.NewStyle().Foreground(palette.Text).Padding(0, 0, 0, 2),
		NormalDesc:  lipgloss.NewStyle().Foreground(palette.Overlay1).Padding(0, 0, 0, 2),
		SelectedTitle: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(palette.Mauve).
			Foreground(palette.Mauve).
			Padding(0, 0, 0, 1),
		SelectedDesc: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(palette.Mauve).
			Foreground(palette.Lavender).
			Padding(0, 0, 0, 1),
		Directory: lipgloss.NewStyle().Foreground(palette.Blue),
		File:      lipgloss.NewStyle().Foreground(palette.Text),
		Disabled:  lipgloss.NewStyle().Foreground(palette.Surface2),
		Cursor:    lipgloss.NewStyle().Foreground(palette.Pink),
		Error:     lipgloss.NewStyle().Foreground(palette.Red),
	}
}

// Default returns the [Styles] for the default palette, [CatpuccinMacchiato].
func Default() Styles {
	return New(CatpuccinMacchiato)
}
