package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Badge styles for patch status.
var (
	badgeApplied = lipgloss.NewStyle().
			Background(colorSuccess).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1).
			Bold(true)

	badgePending = lipgloss.NewStyle().
			Background(colorWarning).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1).
			Bold(true)

	badgeError = lipgloss.NewStyle().
			Background(colorError).
			Foreground(colorWhite).
			Padding(0, 1).
			Bold(true)

	badgeInfo = lipgloss.NewStyle().
			Background(colorPrimary).
			Foreground(colorWhite).
			Padding(0, 1).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite).
			Background(colorPrimary).
			Padding(0, 2)
)

// RenderBadge renders a badge, or "[TEXT]" without colors.
func RenderBadge(text string, style lipgloss.Style) string {
	if !EnableColors() {
		return "[" + text + "]"
	}
	return style.Render(text)
}

func RenderAppliedBadge() string { return RenderBadge("APPLIED", badgeApplied) }

func RenderPendingBadge() string { return RenderBadge("PENDING", badgePending) }

func RenderErrorBadge() string { return RenderBadge("ERROR", badgeError) }

func RenderInfoBadge(text string) string { return RenderBadge(text, badgeInfo) }

// RenderTitle renders a command title.
func RenderTitle(title string) string {
	if !EnableColors() {
		return title + "\n" + strings.Repeat("=", len(title))
	}
	return titleStyle.Render(title)
}

// StatusLine renders one patch status row: badge, position and name.
func StatusLine(applied bool, position int, name string) string {
	badge := RenderPendingBadge()
	if applied {
		badge = RenderAppliedBadge()
	}
	if name == "" {
		name = Dim("(unnamed)")
	}
	return fmt.Sprintf("%s %4d  %s", badge, position, name)
}

// KeyValue renders aligned key-value pairs, in the order given.
func KeyValue(pairs ...string) string {
	width := 0
	for i := 0; i < len(pairs); i += 2 {
		width = max(width, len(pairs[i]))
	}
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(Dim(padRight(pairs[i], width)))
		b.WriteString("  ")
		b.WriteString(pairs[i+1])
		b.WriteString("\n")
	}
	return b.String()
}
