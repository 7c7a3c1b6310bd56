package cli

import "github.com/charmbracelet/lipgloss"

// ANSI 256 colors for broad terminal compatibility.
var (
	colorPrimary   = lipgloss.Color("12")
	colorSuccess   = lipgloss.Color("10")
	colorWarning   = lipgloss.Color("11")
	colorError     = lipgloss.Color("9")
	colorMuted     = lipgloss.Color("8")
	colorHighlight = lipgloss.Color("14")
	colorWhite     = lipgloss.Color("15")
)

var (
	styleError     = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleWarning   = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	styleNote      = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true)
	styleHelp      = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleSuccess   = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleCode      = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	stylePipe      = lipgloss.NewStyle().Foreground(colorPrimary)
	styleSQL       = lipgloss.NewStyle().Foreground(colorHighlight)
	styleHeader    = lipgloss.NewStyle().Bold(true)
	styleDim       = lipgloss.NewStyle().Foreground(colorMuted)
	styleHighlight = lipgloss.NewStyle().Foreground(colorHighlight)
)

func render(style lipgloss.Style, s string) string {
	if !EnableColors() {
		return s
	}
	return style.Render(s)
}

// Error returns text styled as an error label.
func Error(s string) string { return render(styleError, s) }

// Warning returns text styled as a warning label.
func Warning(s string) string { return render(styleWarning, s) }

// Note returns text styled as a note label.
func Note(s string) string { return render(styleNote, s) }

// Help returns text styled as a help label.
func Help(s string) string { return render(styleHelp, s) }

// Success returns text styled as a success message.
func Success(s string) string { return render(styleSuccess, s) }

// Code returns text styled as an error code.
func Code(s string) string { return render(styleCode, s) }

// SQL returns text styled as a SQL statement.
func SQL(s string) string { return render(styleSQL, s) }

// Header returns text styled as a table header.
func Header(s string) string { return render(styleHeader, s) }

// Dim returns muted text.
func Dim(s string) string { return render(styleDim, s) }

// Highlight returns highlighted text.
func Highlight(s string) string { return render(styleHighlight, s) }

// Pipe returns the gutter character of a diagnostic.
func Pipe() string { return render(stylePipe, "|") }
