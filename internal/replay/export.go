package replay

import (
	"fmt"

	"github.com/NaturesHolismMELV/AIOS/internal/environment"
	"github.com/NaturesHolismMELV/AIOS/internal/intervention"
	"github.com/NaturesHolismMELV/AIOS/internal/ledger"
)

// #region export

// Export builds a fixture from recorded interactions (chronological) and the
// events they produced, keyed by record Seq. Provision steps are inserted
// wherever a channel's β differs from the one the replay kernel would see, so
// the fixture reproduces every recorded classification. Nudge projections
// depend on noise and are not asserted.
func Export(description string, recs []ledger.Record, events map[uint64]intervention.Event) Fixture {
	f := Fixture{Description: description}

	env := environment.New()
	seen := map[string]bool{}
	addAgent := func(id string) {
		if !seen[id] {
			seen[id] = true
			f.Agents = append(f.Agents, FixtureAgent{ID: id, Name: id})
		}
	}

	for _, rec := range recs {
		addAgent(rec.AgentA)
		addAgent(rec.AgentB)

		if r, err := environment.ParseResource(rec.Resource); err == nil && env.Get(r) != rec.Beta {
			env.Provision(r, rec.Beta)
			f.Steps = append(f.Steps, FixtureStep{
				ID:        fmt.Sprintf("provision-%d", rec.Seq),
				Provision: &FixtureProvision{Resource: r.String(), Value: rec.Beta},
			})
		}

		betaI := rec.BetaI()
		expect := &FixtureExpect{Class: rec.Class().String(), BetaI: &betaI, Action: "none"}
		if ev, ok := events[rec.Seq]; ok {
			expect.Action = ev.Action.String()
			if ev.Action != intervention.ActionNudge {
				post, resolved := ev.BetaIPost, ev.Resolved
				expect.BetaIPost, expect.Resolved = &post, &resolved
			}
		}
		f.Steps = append(f.Steps, FixtureStep{
			ID: fmt.Sprintf("seq-%d", rec.Seq),
			Interaction: &FixtureInteraction{
				AgentA: rec.AgentA, AgentB: rec.AgentB,
				Cost: rec.Cost, Benefit: rec.Benefit, Resource: rec.Resource,
			},
			Expect: expect,
		})
	}
	return f
}

// #endregion export
