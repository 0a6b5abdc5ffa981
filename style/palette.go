package style

import "github.com/charmbracelet/lipgloss"

// Palette used by the status line and the dependency report.
var (
	Text  = lipgloss.Color("#cdd6f4")
	Mauve = lipgloss.Color("#cba6f7")
	Red   = lipgloss.Color("#f38ba8")

	AccentColor = Mauve
	HiRed       = Red
)
