package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	ShopGreen  = lipgloss.Color("#95BF47")
	SlateDark  = lipgloss.Color("#1F2937")
	SlateLight = lipgloss.Color("#374151")
	DimGray    = lipgloss.Color("#6B7280")
	LightGray  = lipgloss.Color("#9CA3AF")
	White      = lipgloss.Color("#F9FAFB")
	Green      = lipgloss.Color("#10B981")
	Orange     = lipgloss.Color("#E5A00D")
	Red        = lipgloss.Color("#EF4444")
)

// Text styles
var (
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(ShopGreen)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	HighlightStyle = lipgloss.NewStyle().
			Foreground(SlateDark).
			Background(ShopGreen).
			Bold(true).
			Padding(0, 1)
)

// Title bar
var (
	TitleBarStyle = lipgloss.NewStyle().
			Foreground(SlateDark).
			Background(ShopGreen).
			Bold(true).
			Padding(0, 1)
)

// Sync status indicators
var (
	SyncedStyle    = lipgloss.NewStyle().Foreground(Green)
	NotSyncedStyle = lipgloss.NewStyle().Foreground(Orange)
)

// Controls
var (
	ButtonStyle = lipgloss.NewStyle().
			Foreground(SlateDark).
			Background(ShopGreen).
			Padding(0, 1)

	ButtonDisabledStyle = lipgloss.NewStyle().
				Foreground(LightGray).
				Background(SlateLight).
				Padding(0, 1)
)

// Panel styles
var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray).
			Padding(0, 1)

	PanelTitleStyle = lipgloss.NewStyle().
			Foreground(ShopGreen).
			Bold(true)

	CounterValueStyle = lipgloss.NewStyle().
				Foreground(White).
				Bold(true)

	LogLineStyle = lipgloss.NewStyle().
			Foreground(LightGray)
)

// Table styles
var (
	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(ShopGreen).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(DimGray).
				BorderBottom(true).
				Padding(0, 1)

	TableCellStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Padding(0, 1)

	TableSelectedStyle = lipgloss.NewStyle().
				Foreground(White).
				Background(SlateLight)
)

// Modal styles
var (
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ShopGreen).
			Padding(1, 2).
			Background(SlateDark)

	AlertModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Red).
			Padding(1, 2).
			Background(SlateDark)

	ModalTitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true).
			MarginBottom(1)
)

// Help styles
var (
	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ShopGreen)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(DimGray)
)

// Spinner style
var (
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ShopGreen)
)

// Filter styles
var (
	FilterStyle = lipgloss.NewStyle().
			Foreground(ShopGreen)

	FilterPromptStyle = lipgloss.NewStyle().
				Foreground(ShopGreen).
				Bold(true)
)

// Helper functions

// Truncate truncates a string to the given display width with ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if width <= 3 {
		if width > len(runes) {
			return s
		}
		return string(runes[:width])
	}
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// Pad pads a string to the given display width
func Pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return Truncate(s, width)
	}
	return s + strings.Repeat(" ", width-w)
}

// SpinnerFrames are the braille frames used for in-flight controls
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// SpinnerFrame returns the unstyled frame for tick n
func SpinnerFrame(n int) string {
	if n < 0 {
		n = -n
	}
	return SpinnerFrames[n%len(SpinnerFrames)]
}
