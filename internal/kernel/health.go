package kernel

import (
	"github.com/NaturesHolismMELV/AIOS/internal/coupling"
	"github.com/NaturesHolismMELV/AIOS/internal/ledger"
	"github.com/NaturesHolismMELV/AIOS/internal/stability"
)

// #region ecosystem-health
// EcosystemHealth assembles a full snapshot. The ledger windows and the event
// tail are copied under one read lock, so the snapshot never shows a
// threshold or conflict record without its event. Everything is recomputed on
// each call.
func (k *Kernel) EcosystemHealth() Health {
	k.mu.RLock()
	recent := k.ledger.Recent(HealthWindow)
	window := k.ledger.Recent(coupling.Window)
	total := k.ledger.Len()
	events := ledger.Tail(k.events, RecentEventCount)
	totalEvents := len(k.events)
	stats := k.registry.Stats()
	k.mu.RUnlock()

	breakdown := make(map[string]int, len(stability.Classes))
	for _, c := range stability.Classes {
		breakdown[c.String()] = 0
	}
	var sumI, sumBI float64
	for _, r := range recent {
		breakdown[r.Class().String()]++
		sumI += r.IFactor()
		sumBI += r.BetaI()
	}
	var meanI, meanBI float64
	if len(recent) > 0 {
		meanI = sumI / float64(len(recent))
		meanBI = sumBI / float64(len(recent))
	}

	return Health{
		CooperationIndex:     cooperationIndex(recent),
		MeanIFactor:          meanI,
		MeanBetaI:            meanBI,
		MeanMaturity:         stats.MeanMaturity,
		MeanPlasticity:       stats.MeanPlasticity,
		Agents:               stats.Agents,
		TotalInteractions:    total,
		InteractionBreakdown: breakdown,
		AgentStatusCounts:    stats.StatusCounts,
		Environment:          k.env.Values(),
		Coupling:             coupling.Estimate(window, stats.Agents),
		RecentEvents:         events,
		ThresholdZoneCount:   breakdown[stability.Threshold.String()],
		ConflictCount:        breakdown[stability.Conflict.String()],
		TotalEvents:          totalEvents,
	}
}

// #endregion ecosystem-health
