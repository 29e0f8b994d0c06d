package kernel

import (
	"log/slog"
	"time"

	"github.com/NaturesHolismMELV/AIOS/internal/coupling"
	"github.com/NaturesHolismMELV/AIOS/internal/intervention"
	"github.com/NaturesHolismMELV/AIOS/internal/ledger"
)

// #region constants
const (
	// HealthWindow is the number of recent records behind the cooperation
	// index and the per-class breakdown.
	HealthWindow = 50
	// RecentEventCount is how many events a health snapshot carries.
	RecentEventCount = 10
	// DefaultListLimit applies when a list call asks for n ≤ 0.
	DefaultListLimit = 20
	// TargetCooperation is the cooperation index of a healthy ecosystem.
	TargetCooperation = 0.75
)

// #endregion constants

// #region observer
// Observer is told about every committed record and, when one was produced,
// its event. It is called while the kernel holds its write lock, in ledger
// order, and must not block or call back into the kernel.
type Observer interface {
	Observe(rec ledger.Record, ev *intervention.Event)
}

// #endregion observer

// #region options
// Options configures a kernel. Zero values pick defaults.
type Options struct {
	Logger       *slog.Logger
	Noise        intervention.Noise
	Clock        func() time.Time
	Intervention *intervention.Config
	Observer     Observer
}

// #endregion options

// #region health
// Health is a consistent snapshot of the whole ecosystem.
type Health struct {
	CooperationIndex     float64              `json:"cooperation_index"`
	MeanIFactor          float64              `json:"mean_i_factor"`
	MeanBetaI            float64              `json:"mean_beta_i"`
	MeanMaturity         float64              `json:"mean_phi"`
	MeanPlasticity       float64              `json:"mean_epsilon"`
	Agents               int                  `json:"n_agents"`
	TotalInteractions    int                  `json:"n_interactions_total"`
	InteractionBreakdown map[string]int       `json:"interaction_breakdown"`
	AgentStatusCounts    map[string]int       `json:"agent_status_counts"`
	Environment          map[string]float64   `json:"beta_environment"`
	Coupling             coupling.Network     `json:"omega"`
	RecentEvents         []intervention.Event `json:"recent_events"`
	ThresholdZoneCount   int                  `json:"threshold_zone_count"`
	ConflictCount        int                  `json:"conflict_count"`
	TotalEvents          int                  `json:"n_events_total"`
}

// Healthy reports whether the cooperation index meets the target.
func (h Health) Healthy() bool {
	return h.CooperationIndex >= TargetCooperation
}

// #endregion health
