package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// table renders static rows with aligned columns.
type table struct {
	title   string
	headers []string
	rows    [][]string
	// per-row style for the first column, optional
	marks []lipgloss.Style
}

func newTable(title string, headers ...string) *table {
	return &table{title: title, headers: headers}
}

func (t *table) add(mark lipgloss.Style, row ...string) {
	t.rows = append(t.rows, row)
	t.marks = append(t.marks, mark)
}

func (t *table) render(st Styles) string {
	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(st.Heading.Render(t.title))
		sb.WriteString("\n")
	}
	if len(t.rows) == 0 {
		sb.WriteString(st.Muted.Render("  (none)"))
		sb.WriteString("\n")
		return sb.String()
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	for i, h := range t.headers {
		sb.WriteString(st.Bold.Width(widths[i] + 2).Render(h))
	}
	sb.WriteString("\n")
	for i := range t.headers {
		sb.WriteString(st.Muted.Render(strings.Repeat("-", widths[i]) + "  "))
	}
	sb.WriteString("\n")
	for r, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			style := st.Body
			if i == 0 {
				style = t.marks[r]
			}
			sb.WriteString(style.Width(widths[i] + 2).Render(cell))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
