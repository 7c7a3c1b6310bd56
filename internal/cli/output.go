package cli

import (
	"fmt"
	"strings"
)

// Table provides aligned column output.
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a table with the given headers.
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &Table{headers: headers, widths: widths}
}

// AddRow adds a row. Missing cells are blank and extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	for len(cells) < len(t.headers) {
		cells = append(cells, "")
	}
	cells = cells[:len(t.headers)]
	for i, cell := range cells {
		t.widths[i] = max(t.widths[i], len(cell))
	}
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

func (t *Table) String() string {
	if len(t.headers) == 0 {
		return ""
	}
	var b strings.Builder
	t.writeRow(&b, t.headers, Header)
	sep := make([]string, len(t.widths))
	for i, w := range t.widths {
		sep[i] = strings.Repeat("-", w)
	}
	t.writeRow(&b, sep, Dim)
	for _, row := range t.rows {
		t.writeRow(&b, row, nil)
	}
	return b.String()
}

func (t *Table) writeRow(b *strings.Builder, cells []string, style func(string) string) {
	var line strings.Builder
	for i, cell := range cells {
		if i > 0 {
			line.WriteString("  ")
		}
		cell = padRight(cell, t.widths[i])
		if style != nil {
			cell = style(cell)
		}
		line.WriteString(cell)
	}
	b.WriteString(strings.TrimRight(line.String(), " "))
	b.WriteString("\n")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Section renders a header, an underline and the content.
func Section(title, content string) string {
	return Header(title) + "\n" + strings.Repeat("-", len(title)) + "\n" + content
}

// Indent indents every non-empty line of content.
func Indent(content string, spaces int) string {
	indent := strings.Repeat(" ", spaces)
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}

// FormatCount formats a count with its singular or plural noun.
func FormatCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
