package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"

	"github.com/NaturesHolismMELV/AIOS/internal/kernel"
	"github.com/NaturesHolismMELV/AIOS/internal/stability"
)

// #region markdown
// Markdown returns an ecosystem snapshot as a markdown document, suitable for
// pasting into an incident note or rendering with RenderMarkdown.
func Markdown(h kernel.Health) string {
	var sb strings.Builder
	sb.WriteString("# MELV ecosystem health\n\n")

	verdict := "healthy"
	if !h.Healthy() {
		verdict = fmt.Sprintf("below target %.2f", kernel.TargetCooperation)
	}
	fmt.Fprintf(&sb, "- **cooperation index**: %.3f (%s)\n", h.CooperationIndex, verdict)
	fmt.Fprintf(&sb, "- **mean i**: %.3f\n", h.MeanIFactor)
	fmt.Fprintf(&sb, "- **mean βi**: %.3f\n", h.MeanBetaI)
	fmt.Fprintf(&sb, "- **agents**: %d (mean φ %.3f, mean ε %.2f)\n", h.Agents, h.MeanMaturity, h.MeanPlasticity)
	fmt.Fprintf(&sb, "- **interactions**: %d\n", h.TotalInteractions)
	fmt.Fprintf(&sb, "- **events**: %d\n", h.TotalEvents)
	fmt.Fprintf(&sb, "- **coupling**: λmax≈%.3f, strength %.4f, %d edges\n\n",
		h.Coupling.ApproxLambdaMax, h.Coupling.CouplingStrength, len(h.Coupling.Edges))

	sb.WriteString("## Stability classes\n\n| Class | Count |\n|---|---|\n")
	for _, c := range []stability.Class{stability.Cooperative, stability.Threshold, stability.Conflict} {
		fmt.Fprintf(&sb, "| %s | %d |\n", c, h.InteractionBreakdown[c.String()])
	}

	sb.WriteString("\n## β environment\n\n| Resource | β |\n|---|---|\n")
	for _, k := range sortedKeys(h.Environment) {
		fmt.Fprintf(&sb, "| %s | %.2f |\n", k, h.Environment[k])
	}

	sb.WriteString("\n## Recent bifurcations\n\n")
	if len(h.RecentEvents) == 0 {
		sb.WriteString("_none_\n")
		return sb.String()
	}
	sb.WriteString("| Event | Agents | βi pre | βi post | Action | Resolved |\n|---|---|---|---|---|---|\n")
	for _, ev := range h.RecentEvents {
		resolved := "yes"
		if !ev.Resolved {
			resolved = "**no**"
		}
		fmt.Fprintf(&sb, "| %s | %s ↔ %s | %.3f | %.3f | %s | %s |\n",
			ev.ID, ev.AgentA, ev.AgentB, ev.BetaIPre, ev.BetaIPost, ev.Action, resolved)
	}
	return sb.String()
}

// RenderMarkdown renders md for a terminal. Without color the plain notty
// style is used.
func RenderMarkdown(w io.Writer, md string, color bool, width int) error {
	style := styles.NoTTYStyle
	if color {
		style = styles.AutoStyle
	}
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// #endregion markdown
