package output

import "github.com/charmbracelet/lipgloss"

// Color constants using ANSI 256-color palette.
const (
	// ColorPrimary is used for titles and headers (bright blue).
	ColorPrimary = lipgloss.Color("39")

	// ColorSuccess marks saved strips and unique images (green).
	ColorSuccess = lipgloss.Color("42")

	// ColorWarning marks duplicates and deferred work (orange).
	ColorWarning = lipgloss.Color("214")

	// ColorDanger marks failures (red).
	ColorDanger = lipgloss.Color("196")

	// ColorMuted is used for secondary text (gray).
	ColorMuted = lipgloss.Color("245")
)

var (
	// HeaderBox holds the title and summary fields.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	// FooterBox holds the row count and hints.
	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorDanger)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorMuted)
)

// cellStyle colours status words in table cells.
func cellStyle(cell string) lipgloss.Style {
	switch cell {
	case "saved", "unique", "found":
		return SuccessStyle
	case "duplicate", "deferred", "AT_END", "AT_BEGINNING":
		return WarningStyle
	case "failed", "NO_COMICS_AVAILABLE":
		return ErrorStyle
	default:
		return ValueStyle
	}
}
