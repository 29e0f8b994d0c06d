// Package kernel is the governance kernel: it owns the agent registry, the
// interaction ledger, the bifurcation event log and the β environment, and
// serializes every mutation behind one synchronization boundary.
package kernel

import (
	"log/slog"
	"sync"
	"time"

	"github.com/NaturesHolismMELV/AIOS/internal/coupling"
	"github.com/NaturesHolismMELV/AIOS/internal/environment"
	"github.com/NaturesHolismMELV/AIOS/internal/intervention"
	"github.com/NaturesHolismMELV/AIOS/internal/ledger"
	"github.com/NaturesHolismMELV/AIOS/internal/registry"
	"github.com/NaturesHolismMELV/AIOS/internal/stability"
)

// #region kernel
// Kernel is safe for concurrent use. mu guards the ledger, the event log and
// the intervention engine together so a record and its event become visible
// as one unit. The registry and environment synchronize themselves.
type Kernel struct {
	mu       sync.RWMutex
	ledger   *ledger.Ledger
	events   []intervention.Event
	engine   *intervention.Engine
	registry *registry.Registry
	env      *environment.Environment

	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a kernel with an empty ledger and default environment.
func New(opts Options) *Kernel {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	cfg := intervention.DefaultConfig()
	if opts.Intervention != nil {
		cfg = *opts.Intervention
	}
	return &Kernel{
		ledger:   ledger.New(),
		engine:   intervention.NewEngine(cfg, opts.Noise, now),
		registry: registry.NewWithClock(now),
		env:      environment.New(),
		observer: opts.Observer,
		logger:   logger.With("component", "kernel"),
		now:      now,
	}
}

// #endregion kernel

// #region agents
// RegisterAgent adds or replaces an agent profile.
func (k *Kernel) RegisterAgent(p registry.Profile) registry.Profile {
	stored := k.registry.Register(p)
	k.logger.Info("agent registered",
		"agent", stored.ID, "domain", stored.Domain,
		"phi", stored.Maturity, "epsilon", stored.Plasticity, "status", stored.Status.String())
	return stored
}

// GetAgent looks up a profile; ok is false when the ID is unknown.
func (k *Kernel) GetAgent(id string) (registry.Profile, bool) {
	return k.registry.Get(id)
}

// UpdateMaturity feeds a task outcome into the agent's φ. Unknown IDs are
// ignored.
func (k *Kernel) UpdateMaturity(id string, quality float64) {
	if !k.registry.UpdateMaturity(id, quality) {
		k.logger.Debug("maturity update for unknown agent", "agent", id)
	}
}

// ListAgents returns all profiles in registration order.
func (k *Kernel) ListAgents() []registry.Profile {
	return k.registry.List()
}

// #endregion agents

// #region record-interaction
// RecordInteraction measures one interaction. β is sampled for resource (an
// unknown name samples the neutral 1.0), the record is appended, and a
// threshold or conflict record is answered by the intervention engine in the
// same critical section. Inputs are not validated.
func (k *Kernel) RecordInteraction(agentA, agentB string, cost, benefit float64, resource string) ledger.Record {
	rec, ev, ok := k.commit(ledger.Record{
		AgentA:   agentA,
		AgentB:   agentB,
		Cost:     cost,
		Benefit:  benefit,
		Beta:     k.env.Lookup(resource),
		Resource: resource,
	})

	// Logged after the lock is released.
	k.logger.Debug("interaction recorded",
		"seq", rec.Seq, "a", agentA, "b", agentB, "resource", resource,
		"i", rec.IFactor(), "beta_i", rec.BetaI(), "class", rec.Class().String())
	if ok {
		k.logEvent(ev)
	}
	return rec
}

func (k *Kernel) commit(draft ledger.Record) (ledger.Record, intervention.Event, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	draft.CreatedAt = k.now().UTC()
	rec := k.ledger.Append(draft)

	ev, ok := k.engine.Respond(rec)
	var evp *intervention.Event
	if ok {
		k.events = append(k.events, ev)
		evp = &ev
	}
	if k.observer != nil {
		k.observer.Observe(rec, evp)
	}
	return rec, ev, ok
}

func (k *Kernel) logEvent(ev intervention.Event) {
	attrs := []any{
		"event", ev.ID, "action", ev.Action.String(),
		"a", ev.AgentA, "b", ev.AgentB,
		"beta_i_pre", ev.BetaIPre, "beta_i_post", ev.BetaIPost,
	}
	if ev.Resolved {
		k.logger.Info("bifurcation", attrs...)
		return
	}
	k.logger.Warn("bifurcation unresolved", attrs...)
}

// #endregion record-interaction

// #region environment
// ProvisionBeta sets a channel's β, clamped into [0.1, 3.0], and returns the
// stored value. Callers resolve names with environment.ParseResource first.
func (k *Kernel) ProvisionBeta(r environment.Resource, value float64) float64 {
	stored := k.env.Provision(r, value)
	k.logger.Info("beta provisioned", "resource", r.String(), "requested", value, "stored", stored)
	return stored
}

// Environment snapshots the current β of every channel.
func (k *Kernel) Environment() map[string]float64 {
	return k.env.Values()
}

// Beta returns the current β of one channel.
func (k *Kernel) Beta(r environment.Resource) float64 {
	return k.env.Get(r)
}

// #endregion environment

// #region reads
// ListInteractions returns the last n records, oldest first.
func (k *Kernel) ListInteractions(n int) []ledger.Record {
	if n <= 0 {
		n = DefaultListLimit
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.ledger.Recent(n)
}

// ListEvents returns the last n bifurcation events, oldest first.
func (k *Kernel) ListEvents(n int) []intervention.Event {
	if n <= 0 {
		n = DefaultListLimit
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return ledger.Tail(k.events, n)
}

// CooperationIndex is 1 − mean βi over the last 50 records, clamped into
// [0, 1]. An empty ledger counts as fully cooperative.
func (k *Kernel) CooperationIndex() float64 {
	k.mu.RLock()
	recent := k.ledger.Recent(HealthWindow)
	k.mu.RUnlock()
	return cooperationIndex(recent)
}

// CouplingNetwork estimates the coupling graph over the last 100 records.
func (k *Kernel) CouplingNetwork() coupling.Network {
	n := k.registry.Len()
	k.mu.RLock()
	recent := k.ledger.Recent(coupling.Window)
	k.mu.RUnlock()
	return coupling.Estimate(recent, n)
}

func cooperationIndex(recent []ledger.Record) float64 {
	if len(recent) == 0 {
		return 1.0
	}
	var sum float64
	for _, r := range recent {
		sum += r.BetaI()
	}
	return stability.Clamp(1.0-sum/float64(len(recent)), 0, 1)
}

// #endregion reads
