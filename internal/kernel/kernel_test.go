package kernel

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/NaturesHolismMELV/AIOS/internal/environment"
	"github.com/NaturesHolismMELV/AIOS/internal/intervention"
	"github.com/NaturesHolismMELV/AIOS/internal/ledger"
	"github.com/NaturesHolismMELV/AIOS/internal/registry"
	"github.com/NaturesHolismMELV/AIOS/internal/stability"
)

// #region helpers
type fixedNoise float64

func (f fixedNoise) NormFloat64() float64 { return float64(f) }

var epoch = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	return New(Options{
		Noise: fixedNoise(1),
		Clock: func() time.Time { return epoch },
	})
}

func register(k *Kernel, ids ...string) {
	for _, id := range ids {
		k.RegisterAgent(registry.Profile{
			ID: id, Name: id, Domain: "test",
			Maturity: 0.5, Plasticity: 3.0, Status: registry.StatusMaturing,
		})
	}
}

// #endregion helpers

// #region record-tests
func TestThresholdThenConflictScenario(t *testing.T) {
	k := newTestKernel(t)
	register(k, "A", "B")

	rec := k.RecordInteraction("A", "B", 0.9, 1.0, "compute")
	if rec.Beta != 1.0 {
		t.Fatalf("expected default compute β 1.0, got %v", rec.Beta)
	}
	if rec.Class() != stability.Threshold {
		t.Fatalf("expected threshold, got %s (βi=%v)", rec.Class(), rec.BetaI())
	}
	events := k.ListEvents(0)
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event, got %d", len(events))
	}
	if events[0].Action != intervention.ActionNudge || !events[0].Resolved {
		t.Fatalf("expected resolved nudge, got %+v", events[0])
	}
	if events[0].ID != "BIF-0001" {
		t.Fatalf("expected BIF-0001, got %s", events[0].ID)
	}

	rec2 := k.RecordInteraction("A", "B", 1.5, 1.0, "compute")
	if rec2.Class() != stability.Conflict {
		t.Fatalf("expected conflict, got %s", rec2.Class())
	}
	events = k.ListEvents(0)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Action != intervention.ActionNicheDivergence {
		t.Fatalf("expected niche divergence, got %s", events[1].Action)
	}
}

func TestHighConflictProvisionsBeta(t *testing.T) {
	k := newTestKernel(t)
	register(k, "A", "B")
	k.RecordInteraction("A", "B", 1.7, 1.0, "compute")

	events := k.ListEvents(1)
	if len(events) != 1 || events[0].Action != intervention.ActionProvisionBeta {
		t.Fatalf("expected provision_beta event, got %+v", events)
	}
}

func TestCooperativeRecordsNoEvent(t *testing.T) {
	k := newTestKernel(t)
	register(k, "X", "Y")
	for i := 0; i < 5; i++ {
		k.RecordInteraction("X", "Y", 0.2, 1.0, "compute")
	}
	if n := len(k.ListEvents(100)); n != 0 {
		t.Fatalf("expected no events, got %d", n)
	}
}

func TestRecordSamplesResourceBeta(t *testing.T) {
	k := newTestKernel(t)

	// vector_store default 1.2: 0.8 × 1.2 = 0.96 → threshold
	rec := k.RecordInteraction("A", "B", 0.8, 1.0, "vector_store")
	if rec.Beta != 1.2 || rec.Class() != stability.Threshold {
		t.Fatalf("expected β 1.2 threshold, got β=%v class=%s", rec.Beta, rec.Class())
	}

	// storage default 0.8: 0.8 × 0.8 = 0.64 → cooperative
	rec = k.RecordInteraction("A", "B", 0.8, 1.0, "storage")
	if rec.Class() != stability.Cooperative {
		t.Fatalf("expected cooperative, got %s", rec.Class())
	}

	// unknown channel samples the neutral 1.0
	rec = k.RecordInteraction("A", "B", 0.5, 1.0, "gpu_cluster")
	if rec.Beta != environment.NeutralBeta || rec.Resource != "gpu_cluster" {
		t.Fatalf("expected neutral β for unknown channel, got %+v", rec)
	}
}

func TestProvisionAffectsOnlyLaterRecords(t *testing.T) {
	k := newTestKernel(t)
	before := k.RecordInteraction("A", "B", 0.5, 1.0, "compute")

	if got := k.ProvisionBeta(environment.Compute, 5.0); got != environment.MaxBeta {
		t.Fatalf("expected clamp to 3.0, got %v", got)
	}
	if got := k.ProvisionBeta(environment.Compute, -1.0); got != environment.MinBeta {
		t.Fatalf("expected clamp to 0.1, got %v", got)
	}
	k.ProvisionBeta(environment.Compute, 1.8)
	after := k.RecordInteraction("A", "B", 0.5, 1.0, "compute")

	recs := k.ListInteractions(10)
	if recs[0].Beta != before.Beta || recs[0].Beta != 1.0 {
		t.Fatalf("earlier record changed: %+v", recs[0])
	}
	if after.Beta != 1.8 {
		t.Fatalf("expected β 1.8, got %v", after.Beta)
	}
	if k.Environment()["compute"] != 1.8 {
		t.Fatalf("environment snapshot out of date: %v", k.Environment())
	}
}

func TestDegenerateAndNegativeInputs(t *testing.T) {
	k := newTestKernel(t)

	rec := k.RecordInteraction("A", "B", 0.1, 0, "compute")
	if rec.IFactor() != stability.DegenerateIFactor {
		t.Fatalf("expected degenerate i, got %v", rec.IFactor())
	}
	rec = k.RecordInteraction("A", "B", -0.5, 1.0, "compute")
	if rec.Class() != stability.Cooperative {
		t.Fatalf("negative cost should classify cooperative, got %s", rec.Class())
	}
	if k.ListInteractions(0)[1].Cost != -0.5 {
		t.Fatal("negative cost should be stored as given")
	}
}

func TestInterventionDoesNotFeedBack(t *testing.T) {
	k := newTestKernel(t)
	for i := 0; i < 3; i++ {
		k.RecordInteraction("A", "B", 2.0, 1.0, "compute")
	}
	if k.Beta(environment.Compute) != 1.0 {
		t.Fatalf("intervention must not change β, got %v", k.Beta(environment.Compute))
	}
	for _, r := range k.ListInteractions(0) {
		if r.BetaI() != 2.0 {
			t.Fatalf("intervention must not change recorded coefficients, got %v", r.BetaI())
		}
	}
}

// #endregion record-tests

// #region agent-tests
func TestAgentLifecycle(t *testing.T) {
	k := newTestKernel(t)
	k.RegisterAgent(registry.Profile{ID: "EVOLVE-01", Maturity: 0.5, Plasticity: 4.0})

	prev := 0.5
	for i := 0; i < 10; i++ {
		k.UpdateMaturity("EVOLVE-01", 0.9)
		p, _ := k.GetAgent("EVOLVE-01")
		if p.Maturity <= prev {
			t.Fatalf("call %d: φ not increasing (%v → %v)", i, prev, p.Maturity)
		}
		prev = p.Maturity
	}
	if math.Abs(prev-0.66) > 1e-9 {
		t.Fatalf("expected φ 0.66 after 10 updates, got %v", prev)
	}

	k.UpdateMaturity("ghost", 0.9)
	if _, ok := k.GetAgent("ghost"); ok {
		t.Fatal("unknown update must not create an agent")
	}
	if len(k.ListAgents()) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(k.ListAgents()))
	}
}

// #endregion agent-tests

// #region metric-tests
func TestCooperationIndex(t *testing.T) {
	k := newTestKernel(t)
	if ci := k.CooperationIndex(); ci != 1.0 {
		t.Fatalf("expected 1.0 on empty ledger, got %v", ci)
	}

	register(k, "X", "Y")
	for i := 0; i < 10; i++ {
		k.RecordInteraction("X", "Y", 0.2, 1.0, "compute")
	}
	ci := k.CooperationIndex()
	if ci <= 0.75 || ci > 1.0 {
		t.Fatalf("expected 0.75 < CI ≤ 1, got %v", ci)
	}
	if math.Abs(ci-0.8) > 1e-9 {
		t.Fatalf("expected CI 0.8, got %v", ci)
	}
}

func TestCooperationIndexClampsAndWindows(t *testing.T) {
	k := newTestKernel(t)
	for i := 0; i < 60; i++ {
		k.RecordInteraction("A", "B", 3.0, 1.0, "compute")
	}
	if ci := k.CooperationIndex(); ci != 0 {
		t.Fatalf("expected CI clamped to 0, got %v", ci)
	}

	// 50 cooperative records push the conflicts out of the window.
	for i := 0; i < HealthWindow; i++ {
		k.RecordInteraction("A", "B", 0.1, 1.0, "compute")
	}
	if ci := k.CooperationIndex(); math.Abs(ci-0.9) > 1e-9 {
		t.Fatalf("expected CI 0.9 over the window, got %v", ci)
	}
}

func TestCouplingNetworkUsesRegistrySize(t *testing.T) {
	k := newTestKernel(t)
	register(k, "P", "Q", "R")
	for i := 0; i < 15; i++ {
		k.RecordInteraction("P", "Q", 0.3, 0.9, "compute")
		k.RecordInteraction("Q", "R", 0.2, 0.8, "compute")
	}
	net := k.CouplingNetwork()
	if net.N != 3 {
		t.Fatalf("expected n=3, got %d", net.N)
	}
	if len(net.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(net.Edges))
	}
	if net.CouplingStrength < 0 {
		t.Fatalf("expected non-negative strength, got %v", net.CouplingStrength)
	}
}

func TestListDefaultsAndSuffix(t *testing.T) {
	k := newTestKernel(t)
	for i := 0; i < 30; i++ {
		k.RecordInteraction("A", "B", 1.2, 1.0, "compute")
	}
	if n := len(k.ListInteractions(0)); n != DefaultListLimit {
		t.Fatalf("expected default %d, got %d", DefaultListLimit, n)
	}
	last := k.ListInteractions(5)
	if len(last) != 5 || last[4].Seq != 30 || last[0].Seq != 26 {
		t.Fatalf("unexpected suffix: first=%d last=%d", last[0].Seq, last[len(last)-1].Seq)
	}
	evs := k.ListEvents(3)
	if len(evs) != 3 || evs[2].ID != "BIF-0030" {
		t.Fatalf("unexpected event suffix: %+v", evs)
	}
}

// #endregion metric-tests

// #region health-tests
func TestEcosystemHealthEmpty(t *testing.T) {
	h := newTestKernel(t).EcosystemHealth()
	if h.CooperationIndex != 1.0 || h.MeanIFactor != 0 || h.MeanBetaI != 0 {
		t.Fatalf("unexpected empty metrics: %+v", h)
	}
	if h.MeanMaturity != 0 || h.MeanPlasticity != 0 || h.Agents != 0 {
		t.Fatalf("unexpected empty agent metrics: %+v", h)
	}
	for _, c := range stability.Classes {
		if v, ok := h.InteractionBreakdown[c.String()]; !ok || v != 0 {
			t.Fatalf("expected zero %s count, got %v (present=%v)", c, v, ok)
		}
	}
	if len(h.Environment) != len(environment.Resources) {
		t.Fatalf("expected full environment, got %v", h.Environment)
	}
	if !h.Healthy() {
		t.Fatal("empty ecosystem should be healthy")
	}
}

func TestEcosystemHealthBreakdown(t *testing.T) {
	k := newTestKernel(t)
	register(k, "A", "B", "C")
	k.RecordInteraction("A", "B", 0.2, 1.0, "compute") // cooperative
	k.RecordInteraction("A", "B", 0.9, 1.0, "compute") // threshold
	k.RecordInteraction("B", "C", 0.8, 1.0, "compute") // threshold
	k.RecordInteraction("A", "C", 1.2, 1.0, "compute") // conflict

	h := k.EcosystemHealth()
	if h.ThresholdZoneCount != 2 || h.ConflictCount != 1 {
		t.Fatalf("expected 2 threshold / 1 conflict, got %d / %d", h.ThresholdZoneCount, h.ConflictCount)
	}
	if h.InteractionBreakdown["cooperative"] != 1 {
		t.Fatalf("expected 1 cooperative, got %v", h.InteractionBreakdown)
	}
	if math.Abs(h.MeanBetaI-(0.2+0.9+0.8+1.2)/4) > 1e-9 {
		t.Fatalf("unexpected mean βi %v", h.MeanBetaI)
	}
	if h.TotalInteractions != 4 || h.TotalEvents != 3 || len(h.RecentEvents) != 3 {
		t.Fatalf("unexpected totals: %+v", h)
	}
	if h.Agents != 3 || h.AgentStatusCounts["maturing"] != 3 {
		t.Fatalf("unexpected agent stats: %+v", h.AgentStatusCounts)
	}
	if math.Abs(h.MeanMaturity-0.5) > 1e-9 || math.Abs(h.MeanPlasticity-3.0) > 1e-9 {
		t.Fatalf("unexpected means φ=%v ε=%v", h.MeanMaturity, h.MeanPlasticity)
	}
	if len(h.Coupling.Edges) != 3 {
		t.Fatalf("expected 3 coupling edges, got %d", len(h.Coupling.Edges))
	}
}

func TestEcosystemHealthRecentEventsCapped(t *testing.T) {
	k := newTestKernel(t)
	for i := 0; i < 25; i++ {
		k.RecordInteraction("A", "B", 1.2, 1.0, "compute")
	}
	h := k.EcosystemHealth()
	if len(h.RecentEvents) != RecentEventCount {
		t.Fatalf("expected %d events, got %d", RecentEventCount, len(h.RecentEvents))
	}
	if h.RecentEvents[RecentEventCount-1].ID != "BIF-0025" {
		t.Fatalf("expected newest last, got %s", h.RecentEvents[RecentEventCount-1].ID)
	}
}

func TestPureReadsIdempotent(t *testing.T) {
	k := newTestKernel(t)
	register(k, "A", "B")
	k.RecordInteraction("A", "B", 0.9, 1.0, "compute")
	k.RecordInteraction("A", "B", 1.7, 1.0, "api_quota")
	k.UpdateMaturity("A", 0.8)

	a1, _ := k.GetAgent("A")
	a2, _ := k.GetAgent("A")
	if diff := cmp.Diff(a1, a2); diff != "" {
		t.Errorf("GetAgent mismatch (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(k.ListInteractions(10), k.ListInteractions(10)); diff != "" {
		t.Errorf("ListInteractions mismatch (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(k.EcosystemHealth(), k.EcosystemHealth()); diff != "" {
		t.Errorf("EcosystemHealth mismatch (-first +second):\n%s", diff)
	}
}

// #endregion health-tests

// #region concurrency-tests
type orderObserver struct {
	seqs   []uint64
	events int
}

func (o *orderObserver) Observe(rec ledger.Record, ev *intervention.Event) {
	o.seqs = append(o.seqs, rec.Seq)
	if ev != nil {
		o.events++
	}
}

func TestObserverSeesLedgerOrder(t *testing.T) {
	obs := &orderObserver{}
	k := New(Options{Noise: fixedNoise(0), Observer: obs})

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				k.RecordInteraction("A", "B", 0.9, 1.0, "compute")
			}
		}()
	}
	wg.Wait()

	if len(obs.seqs) != 200 || obs.events != 200 {
		t.Fatalf("expected 200 records and events, got %d / %d", len(obs.seqs), obs.events)
	}
	for i, s := range obs.seqs {
		if s != uint64(i+1) {
			t.Fatalf("observer saw seq %d at position %d", s, i)
		}
	}
}

func TestConcurrentRecordAndSnapshotConsistent(t *testing.T) {
	k := New(Options{Noise: fixedNoise(1)})
	register(k, "A", "B", "C")

	done := make(chan struct{})
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				// every record is threshold or conflict, so events == records
				cost := 0.8 + float64((w+i)%5)*0.2
				k.RecordInteraction("A", "B", cost, 1.0, "compute")
				if i%10 == 0 {
					k.ProvisionBeta(environment.Storage, float64(i%3)+0.5)
				}
			}
		}(w)
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		h := k.EcosystemHealth()
		if h.TotalEvents != h.TotalInteractions {
			t.Fatalf("torn snapshot: %d records, %d events", h.TotalInteractions, h.TotalEvents)
		}
		select {
		case <-done:
			h := k.EcosystemHealth()
			if h.TotalInteractions != 800 || h.TotalEvents != 800 {
				t.Fatalf("expected 800/800, got %d/%d", h.TotalInteractions, h.TotalEvents)
			}
			return
		default:
		}
	}
}

// #endregion concurrency-tests
