package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/NaturesHolismMELV/AIOS/internal/intervention"
	"github.com/NaturesHolismMELV/AIOS/internal/journal"
	"github.com/NaturesHolismMELV/AIOS/internal/kernel"
	"github.com/NaturesHolismMELV/AIOS/internal/ledger"
	"github.com/NaturesHolismMELV/AIOS/internal/replay"
	"github.com/NaturesHolismMELV/AIOS/internal/stability"
)

const timeLayout = "15:04:05"

// #region health
// Health renders an ecosystem snapshot.
func Health(w io.Writer, h kernel.Health, st Styles) error {
	var sb strings.Builder
	sb.WriteString(st.Title.Render("MELV ecosystem health"))
	sb.WriteString("\n\n")

	ci := fmt.Sprintf("%.3f", h.CooperationIndex)
	verdict := st.Good.Render(ci + "  healthy")
	if !h.Healthy() {
		verdict = st.Warn.Render(fmt.Sprintf("%s  below target %.2f", ci, kernel.TargetCooperation))
	}
	field(&sb, st, "cooperation index", verdict)
	field(&sb, st, "mean i", fmt.Sprintf("%.3f", h.MeanIFactor))
	field(&sb, st, "mean βi", fmt.Sprintf("%.3f", h.MeanBetaI))
	field(&sb, st, "agents", fmt.Sprintf("%d (mean φ %.3f, mean ε %.2f)", h.Agents, h.MeanMaturity, h.MeanPlasticity))
	field(&sb, st, "interactions", strconv.Itoa(h.TotalInteractions))
	field(&sb, st, "events", strconv.Itoa(h.TotalEvents))
	field(&sb, st, "breakdown", fmt.Sprintf("%s %d  %s %d  %s %d",
		st.Good.Render("cooperative"), h.InteractionBreakdown[stability.Cooperative.String()],
		st.Warn.Render("threshold"), h.ThresholdZoneCount,
		st.Bad.Render("conflict"), h.ConflictCount))
	field(&sb, st, "status", joinCounts(h.AgentStatusCounts))
	field(&sb, st, "β environment", joinValues(h.Environment))
	field(&sb, st, "coupling", fmt.Sprintf("λmax≈%.3f  strength %.4f  edges %d",
		h.Coupling.ApproxLambdaMax, h.Coupling.CouplingStrength, len(h.Coupling.Edges)))
	sb.WriteString("\n")

	sb.WriteString(eventsTable("Recent bifurcations", h.RecentEvents, st))
	_, err := io.WriteString(w, sb.String())
	return err
}

func field(sb *strings.Builder, st Styles, label, value string) {
	sb.WriteString(st.Muted.Width(20).Render(label))
	sb.WriteString(value)
	sb.WriteString("\n")
}

func joinCounts(m map[string]int) string {
	keys := sortedKeys(m)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}

func joinValues(m map[string]float64) string {
	keys := sortedKeys(m)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.2f", k, m[k])
	}
	return strings.Join(parts, " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// #endregion health

// #region events
// Events renders a list of bifurcation events.
func Events(w io.Writer, events []intervention.Event, st Styles) error {
	_, err := io.WriteString(w, eventsTable("Bifurcation events", events, st))
	return err
}

// JournalEvents renders journaled events with the interaction they answered.
func JournalEvents(w io.Writer, rows []journal.EventRow, st Styles) error {
	events := make([]intervention.Event, len(rows))
	for i, r := range rows {
		events[i] = r.Event
	}
	_, err := io.WriteString(w, eventsTable("Journaled events", events, st))
	return err
}

func eventsTable(title string, events []intervention.Event, st Styles) string {
	t := newTable(title, "Event", "Agents", "βi pre", "βi post", "Action", "Resolved", "Time")
	for _, ev := range events {
		mark := st.Good
		resolved := "yes"
		if !ev.Resolved {
			mark, resolved = st.Bad, "no"
		}
		t.add(mark, ev.ID, ev.AgentA+" ↔ "+ev.AgentB,
			fmt.Sprintf("%.3f", ev.BetaIPre), fmt.Sprintf("%.3f", ev.BetaIPost),
			ev.Action.String(), resolved, ev.CreatedAt.Format(timeLayout))
	}
	return t.render(st)
}

// #endregion events

// #region interactions
// Interactions renders ledger records.
func Interactions(w io.Writer, recs []ledger.Record, st Styles) error {
	t := newTable("Interactions", "Seq", "Agents", "Resource", "i", "β", "βi", "Class")
	for _, r := range recs {
		t.add(classStyle(r.Class(), st), strconv.FormatUint(r.Seq, 10), r.AgentA+" ↔ "+r.AgentB,
			r.Resource, fmt.Sprintf("%.3f", r.IFactor()), fmt.Sprintf("%.2f", r.Beta),
			fmt.Sprintf("%.3f", r.BetaI()), r.Class().String())
	}
	_, err := io.WriteString(w, t.render(st))
	return err
}

func classStyle(c stability.Class, st Styles) lipgloss.Style {
	switch c {
	case stability.Threshold:
		return st.Warn
	case stability.Conflict:
		return st.Bad
	}
	return st.Good
}

// Runs renders the journal's runs, marking the selected one.
func Runs(w io.Writer, runs []journal.RunInfo, selected string, st Styles) error {
	t := newTable("Runs", "Run", "Interactions", "First", "Last")
	for _, r := range runs {
		mark, id := st.Body, "  "+r.ID
		if r.ID == selected {
			mark, id = st.Good, "* "+r.ID
		}
		t.add(mark, id, strconv.Itoa(r.Interactions),
			r.First.Format("2006-01-02 15:04:05"), r.Last.Format("2006-01-02 15:04:05"))
	}
	_, err := io.WriteString(w, t.render(st))
	return err
}

// Counts renders a journal summary line.
func Counts(w io.Writer, c journal.Counts, st Styles) error {
	var sb strings.Builder
	sb.WriteString(st.Title.Render("Journal"))
	sb.WriteString("\n")
	field(&sb, st, "interactions", strconv.Itoa(c.Interactions))
	field(&sb, st, "events", fmt.Sprintf("%d (%d unresolved)", c.Events, c.Unresolved))
	field(&sb, st, "by action", joinCounts(c.ByAction))
	sb.WriteString("\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// #endregion interactions

// #region replay
// Replay renders per-step replay results and the summary.
func Replay(w io.Writer, results []replay.StepResult, sum replay.Summary, st Styles) error {
	var sb strings.Builder
	t := newTable("Replay", "Step", "Kind", "Outcome", "Check")
	for _, r := range results {
		mark, check := st.Good, "ok"
		if len(r.Mismatches) > 0 {
			mark, check = st.Bad, strings.Join(r.Mismatches, "; ")
		}
		t.add(mark, r.StepID, r.Kind, outcome(r), check)
	}
	sb.WriteString(t.render(st))
	sb.WriteString("\n")

	verdict := st.Good.Render("PASS")
	if !sum.OK() {
		verdict = st.Bad.Render(fmt.Sprintf("FAIL (%d mismatches)", sum.Mismatches))
	}
	field(&sb, st, "result", verdict)
	field(&sb, st, "interactions", fmt.Sprintf("%d (cooperative %d, threshold %d, conflict %d)",
		sum.Interactions, sum.Cooperative, sum.Threshold, sum.Conflict))
	field(&sb, st, "events", fmt.Sprintf("%d (%d unresolved)", sum.Events, sum.Unresolved))
	field(&sb, st, "cooperation index", fmt.Sprintf("%.3f", sum.Health.CooperationIndex))
	_, err := io.WriteString(w, sb.String())
	return err
}

func outcome(r replay.StepResult) string {
	switch {
	case r.Record != nil && r.Event != nil:
		return fmt.Sprintf("βi=%.3f %s → %s %.3f", r.Record.BetaI(), r.Record.Class(), r.Event.Action, r.Event.BetaIPost)
	case r.Record != nil:
		return fmt.Sprintf("βi=%.3f %s", r.Record.BetaI(), r.Record.Class())
	case r.Kind == "provision":
		return fmt.Sprintf("β=%.2f", r.Beta)
	case r.Kind == "maturity":
		return fmt.Sprintf("φ=%.3f", r.Maturity)
	}
	return ""
}

// #endregion replay
