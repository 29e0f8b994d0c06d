// Package intervention decides and records the corrective action taken when
// an interaction leaves the cooperative basin.
package intervention

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/NaturesHolismMELV/AIOS/internal/ledger"
	"github.com/NaturesHolismMELV/AIOS/internal/stability"
)

// #region noise
// Noise supplies standard normal draws. *rand.Rand satisfies it.
type Noise interface {
	NormFloat64() float64
}

// NewNoise returns a seeded standard normal source.
func NewNoise(seed uint64) Noise {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// #endregion noise

// #region engine
// Engine turns threshold and conflict records into bifurcation events. The
// decision depends only on the record; the engine's state is the event
// counter. Engine is not safe for concurrent use.
type Engine struct {
	config  Config
	noise   Noise
	now     func() time.Time
	counter int
}

// NewEngine creates an engine. A nil noise source falls back to an unseeded
// generator and a nil clock to time.Now.
func NewEngine(config Config, noise Noise, now func() time.Time) *Engine {
	if noise == nil {
		noise = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{config: config, noise: noise, now: now}
}

// Issued is the number of events produced so far.
func (e *Engine) Issued() int {
	return e.counter
}

// #endregion engine

// #region respond
// Respond evaluates a record. Cooperative records produce no event and
// ok is false.
//
//	threshold:             post = max(floor, βi − |η| − step)   nudge
//	conflict, βi < 1.6:    post = βi × 0.65                      niche divergence
//	conflict, βi ≥ 1.6:    post = βi × 0.50                      β provisioning
func (e *Engine) Respond(rec ledger.Record) (Event, bool) {
	bi := rec.BetaI()

	var (
		post   float64
		action Action
		desc   string
	)
	switch rec.Class() {
	case stability.Cooperative:
		return Event{}, false
	case stability.Threshold:
		eta := e.noise.NormFloat64() * e.config.NudgeSigma
		post = math.Max(e.config.NudgeFloor, bi-math.Abs(eta)-e.config.NudgeStep)
		action = ActionNudge
		desc = fmt.Sprintf(
			"%s × %s in threshold zone (βi=%.3f). Stochastic perturbation applied (%s). Projected βi → %.3f",
			rec.AgentA, rec.AgentB, bi, action, post,
		)
	case stability.Conflict:
		if bi < e.config.ProvisionCutoff {
			post = bi * e.config.NicheFactor
			action = ActionNicheDivergence
			desc = fmt.Sprintf(
				"%s × %s in conflict (βi=%.3f). Niche divergence applied (%s), resource partitioned. βi → %.3f",
				rec.AgentA, rec.AgentB, bi, action, post,
			)
		} else {
			post = bi * e.config.ProvisionFactor
			action = ActionProvisionBeta
			desc = fmt.Sprintf(
				"%s × %s high conflict (βi=%.3f). β provisioning triggered (%s), additional resources allocated. βi → %.3f",
				rec.AgentA, rec.AgentB, bi, action, post,
			)
		}
	}

	e.counter++
	return Event{
		ID:          FormatEventID(e.counter),
		AgentA:      rec.AgentA,
		AgentB:      rec.AgentB,
		BetaIPre:    bi,
		BetaIPost:   post,
		Action:      action,
		Description: desc,
		CreatedAt:   e.now().UTC(),
		Resolved:    post < e.config.ConflictThreshold,
	}, true
}

// FormatEventID renders the n-th event identifier.
func FormatEventID(n int) string {
	return fmt.Sprintf("BIF-%04d", n)
}

// #endregion respond
