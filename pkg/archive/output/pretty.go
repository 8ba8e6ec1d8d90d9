package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PrettyFormatter formats output with colors and boxes using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, v View) error {
	w.WriteString(f.formatHeader(v))
	w.WriteString("\n")

	header, rows := v.Header(), v.Rows()
	if len(header) == 0 && len(rows) == 0 {
		return nil
	}

	w.WriteString(f.formatTable(header, rows))
	w.WriteString(f.formatFooter(len(rows)))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) formatHeader(v View) string {
	lines := []string{TitleStyle.Render(v.Title())}
	for _, field := range v.Summary() {
		lines = append(lines, fmt.Sprintf("%s %s",
			LabelStyle.Render(field.Label+":"),
			cellStyle(field.Value).Render(field.Value)))
	}
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatTable(header []string, rows [][]string) string {
	if len(rows) == 0 {
		return MutedStyle.Render("  Nothing to show") + "\n"
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var sb strings.Builder
	if len(header) > 0 {
		cells := make([]string, len(header))
		for i, h := range header {
			cells[i] = TableHeaderStyle.Render(padRight(strings.ToUpper(h), widths[i]))
		}
		sb.WriteString("  " + strings.Join(cells, "  ") + "\n")
	}

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i < len(widths) {
				cell = padRight(cell, widths[i])
			}
			cells[i] = cellStyle(strings.TrimSpace(cell)).Render(cell)
		}
		sb.WriteString("  " + strings.TrimRight(strings.Join(cells, "  "), " ") + "\n")
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(count int) string {
	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Rows:"), ValueStyle.Render(fmt.Sprintf("%d", count))),
		MutedStyle.Render("Use -o plain for unformatted output"),
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

// padRight pads s with spaces on the right to the given display width.
func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
