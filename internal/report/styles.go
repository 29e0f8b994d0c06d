// Package report renders kernel snapshots, events and replay results for the
// terminal and as JSON.
package report

import (
	"encoding/json"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// #region styles
var (
	colorGood  = lipgloss.Color("#8BC34A")
	colorWarn  = lipgloss.Color("#FFC107")
	colorBad   = lipgloss.Color("#e53935")
	colorInfo  = lipgloss.Color("#2196F3")
	colorMuted = lipgloss.Color("#6b7280")
)

// Styles is the set of text styles used by the renderers.
type Styles struct {
	Title   lipgloss.Style
	Heading lipgloss.Style
	Bold    lipgloss.Style
	Body    lipgloss.Style
	Muted   lipgloss.Style
	Good    lipgloss.Style
	Warn    lipgloss.Style
	Bad     lipgloss.Style
}

// NewStyles returns colored styles, or unstyled ones when color is false.
func NewStyles(color bool) Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return Styles{plain, plain, plain, plain, plain, plain, plain, plain}
	}
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(colorInfo),
		Heading: lipgloss.NewStyle().Bold(true).Underline(true),
		Bold:    lipgloss.NewStyle().Bold(true),
		Body:    lipgloss.NewStyle(),
		Muted:   lipgloss.NewStyle().Foreground(colorMuted),
		Good:    lipgloss.NewStyle().Foreground(colorGood),
		Warn:    lipgloss.NewStyle().Foreground(colorWarn),
		Bad:     lipgloss.NewStyle().Foreground(colorBad).Bold(true),
	}
}

// #endregion styles

// #region json
// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion json
