// Package replay runs scripted kernel scenarios against a fresh kernel and
// checks each step against its expectations.
package replay

import (
	"fmt"
	"math"

	"github.com/NaturesHolismMELV/AIOS/internal/environment"
	"github.com/NaturesHolismMELV/AIOS/internal/intervention"
	"github.com/NaturesHolismMELV/AIOS/internal/kernel"
	"github.com/NaturesHolismMELV/AIOS/internal/ledger"
	"github.com/NaturesHolismMELV/AIOS/internal/stability"
)

// tolerance for float expectations
const tolerance = 1e-9

// #region types

// StepResult captures the outcome of one fixture step.
type StepResult struct {
	StepID     string              `json:"step_id"`
	Kind       string              `json:"kind"`
	Record     *ledger.Record      `json:"record,omitempty"`
	Event      *intervention.Event `json:"event,omitempty"`
	Beta       float64             `json:"beta,omitempty"`
	Maturity   float64             `json:"phi,omitempty"`
	Mismatches []string            `json:"mismatches,omitempty"`
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Steps        int           `json:"steps"`
	Interactions int           `json:"interactions"`
	Cooperative  int           `json:"cooperative"`
	Threshold    int           `json:"threshold"`
	Conflict     int           `json:"conflict"`
	Events       int           `json:"events"`
	Unresolved   int           `json:"unresolved"`
	Mismatches   int           `json:"mismatches"`
	Health       kernel.Health `json:"health"`
}

// OK reports whether every expectation held.
func (s Summary) OK() bool { return s.Mismatches == 0 }

// fixedNoise makes nudge projections reproducible.
type fixedNoise float64

func (n fixedNoise) NormFloat64() float64 { return float64(n) }

// capture remembers the last committed event and forwards to the caller's
// observer, if any.
type capture struct {
	next kernel.Observer
	last *intervention.Event
}

func (c *capture) Observe(rec ledger.Record, ev *intervention.Event) {
	c.last = nil
	if ev != nil {
		e := *ev
		c.last = &e
	}
	if c.next != nil {
		c.next.Observe(rec, ev)
	}
}

// #endregion types

// #region replay

// Replay runs the fixture through a fresh kernel built from opts. Noise in
// opts is replaced by the fixture's nudge_noise or seed. The fixture must be
// valid; see Fixture.Validate.
func Replay(f *Fixture, opts kernel.Options) ([]StepResult, Summary, error) {
	if err := f.Validate(); err != nil {
		return nil, Summary{}, err
	}
	if f.NudgeNoise != nil {
		opts.Noise = fixedNoise(*f.NudgeNoise)
	} else {
		opts.Noise = intervention.NewNoise(f.Seed)
	}
	c := &capture{next: opts.Observer}
	opts.Observer = c
	k := kernel.New(opts)

	for _, a := range f.Agents {
		k.RegisterAgent(a.Profile())
	}

	results := make([]StepResult, 0, len(f.Steps))
	for i, step := range f.Steps {
		r := StepResult{StepID: step.ID}
		if r.StepID == "" {
			r.StepID = fmt.Sprintf("#%d", i)
		}
		switch {
		case step.Interaction != nil:
			in := step.Interaction
			rec := k.RecordInteraction(in.AgentA, in.AgentB, in.Cost, in.Benefit, in.Resource)
			r.Kind = "interaction"
			r.Record = &rec
			r.Event = c.last
		case step.Provision != nil:
			res, _ := environment.ParseResource(step.Provision.Resource)
			r.Kind = "provision"
			r.Beta = k.ProvisionBeta(res, step.Provision.Value)
		case step.Maturity != nil:
			k.UpdateMaturity(step.Maturity.Agent, step.Maturity.Quality)
			r.Kind = "maturity"
			if p, ok := k.GetAgent(step.Maturity.Agent); ok {
				r.Maturity = p.Maturity
			}
		}
		if step.Expect != nil {
			r.Mismatches = check(k, step, r)
		}
		results = append(results, r)
	}
	return results, Summarize(results, k.EcosystemHealth()), nil
}

func check(k *kernel.Kernel, step FixtureStep, r StepResult) []string {
	e := step.Expect
	var out []string
	mismatch := func(format string, args ...any) {
		out = append(out, fmt.Sprintf(format, args...))
	}

	if r.Record != nil {
		if e.Class != "" && r.Record.Class().String() != e.Class {
			mismatch("class: want %s, got %s", e.Class, r.Record.Class())
		}
		if e.BetaI != nil && !near(r.Record.BetaI(), *e.BetaI) {
			mismatch("beta_i: want %.4f, got %.4f", *e.BetaI, r.Record.BetaI())
		}
		switch {
		case e.Action == "none" && r.Event != nil:
			mismatch("action: want none, got %s", r.Event.Action)
		case e.Action != "" && e.Action != "none" && r.Event == nil:
			mismatch("action: want %s, got none", e.Action)
		case e.Action != "" && r.Event != nil && r.Event.Action.String() != e.Action:
			mismatch("action: want %s, got %s", e.Action, r.Event.Action)
		}
		if r.Event != nil {
			if e.Resolved != nil && r.Event.Resolved != *e.Resolved {
				mismatch("resolved: want %t, got %t", *e.Resolved, r.Event.Resolved)
			}
			if e.BetaIPost != nil && !near(r.Event.BetaIPost, *e.BetaIPost) {
				mismatch("beta_i_post: want %.4f, got %.4f", *e.BetaIPost, r.Event.BetaIPost)
			}
		}
	}
	if e.Beta != nil {
		got := r.Beta
		if r.Record != nil {
			got = r.Record.Beta
		}
		if !near(got, *e.Beta) {
			mismatch("beta: want %.4f, got %.4f", *e.Beta, got)
		}
	}
	if step.Maturity != nil && (e.Maturity != nil || e.Status != "") {
		p, ok := k.GetAgent(step.Maturity.Agent)
		switch {
		case !ok:
			mismatch("agent %s not registered", step.Maturity.Agent)
		default:
			if e.Maturity != nil && !near(p.Maturity, *e.Maturity) {
				mismatch("phi: want %.4f, got %.4f", *e.Maturity, p.Maturity)
			}
			if e.Status != "" && p.Status.String() != e.Status {
				mismatch("status: want %s, got %s", e.Status, p.Status)
			}
		}
	}
	return out
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []StepResult, health kernel.Health) Summary {
	s := Summary{Steps: len(results), Health: health}
	for _, r := range results {
		s.Mismatches += len(r.Mismatches)
		if r.Record == nil {
			continue
		}
		s.Interactions++
		switch r.Record.Class() {
		case stability.Cooperative:
			s.Cooperative++
		case stability.Threshold:
			s.Threshold++
		case stability.Conflict:
			s.Conflict++
		}
		if r.Event != nil {
			s.Events++
			if !r.Event.Resolved {
				s.Unresolved++
			}
		}
	}
	return s
}

// #endregion replay
