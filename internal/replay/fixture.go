package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/NaturesHolismMELV/AIOS/internal/environment"
	"github.com/NaturesHolismMELV/AIOS/internal/intervention"
	"github.com/NaturesHolismMELV/AIOS/internal/registry"
	"github.com/NaturesHolismMELV/AIOS/internal/stability"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string         `json:"description"`
	Seed        uint64         `json:"seed"`
	NudgeNoise  *float64       `json:"nudge_noise,omitempty"`
	Agents      []FixtureAgent `json:"agents"`
	Steps       []FixtureStep  `json:"steps"`
}

// FixtureAgent is an agent registered before the first step.
type FixtureAgent struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Domain       string   `json:"domain"`
	Maturity     float64  `json:"phi"`
	Plasticity   float64  `json:"epsilon"`
	Status       string   `json:"status,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// FixtureStep is one operation. Exactly one of Interaction, Provision and
// Maturity is set.
type FixtureStep struct {
	ID          string              `json:"id"`
	Interaction *FixtureInteraction `json:"interaction,omitempty"`
	Provision   *FixtureProvision   `json:"provision,omitempty"`
	Maturity    *FixtureMaturity    `json:"maturity,omitempty"`
	Expect      *FixtureExpect      `json:"expect,omitempty"`
}

// FixtureInteraction mirrors the arguments of RecordInteraction.
type FixtureInteraction struct {
	AgentA   string  `json:"agent_a"`
	AgentB   string  `json:"agent_b"`
	Cost     float64 `json:"cost"`
	Benefit  float64 `json:"benefit"`
	Resource string  `json:"resource"`
}

// FixtureProvision sets one β channel.
type FixtureProvision struct {
	Resource string  `json:"resource"`
	Value    float64 `json:"value"`
}

// FixtureMaturity feeds one task outcome into an agent.
type FixtureMaturity struct {
	Agent   string  `json:"agent"`
	Quality float64 `json:"quality"`
}

// FixtureExpect lists the checks for a step. Unset fields are not checked.
// Action "none" asserts that no event was produced.
type FixtureExpect struct {
	Class     string   `json:"class,omitempty"`
	Action    string   `json:"action,omitempty"`
	Resolved  *bool    `json:"resolved,omitempty"`
	BetaI     *float64 `json:"beta_i,omitempty"`
	BetaIPost *float64 `json:"beta_i_post,omitempty"`
	Beta      *float64 `json:"beta,omitempty"`
	Maturity  *float64 `json:"phi,omitempty"`
	Status    string   `json:"status,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads, parses and validates a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return &f, nil
}

// Validate checks step shape, provisioning channel names and expected enum
// values.
func (f *Fixture) Validate() error {
	var errs []error
	for _, a := range f.Agents {
		if a.ID == "" {
			errs = append(errs, errors.New("agent with empty id"))
		}
		if a.Status != "" {
			var s registry.Status
			if err := s.UnmarshalText([]byte(a.Status)); err != nil {
				errs = append(errs, fmt.Errorf("agent %s: %w", a.ID, err))
			}
		}
	}
	for i, s := range f.Steps {
		name := s.ID
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		set := 0
		for _, p := range []bool{s.Interaction != nil, s.Provision != nil, s.Maturity != nil} {
			if p {
				set++
			}
		}
		if set != 1 {
			errs = append(errs, fmt.Errorf("step %s: want exactly one operation, got %d", name, set))
		}
		if s.Provision != nil {
			if _, err := environment.ParseResource(s.Provision.Resource); err != nil {
				errs = append(errs, fmt.Errorf("step %s: %w", name, err))
			}
		}
		if e := s.Expect; e != nil {
			if e.Class != "" {
				if _, err := stability.ParseClass(e.Class); err != nil {
					errs = append(errs, fmt.Errorf("step %s: %w", name, err))
				}
			}
			if e.Action != "" && e.Action != "none" {
				if _, err := intervention.ParseAction(e.Action); err != nil {
					errs = append(errs, fmt.Errorf("step %s: %w", name, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Profile converts a FixtureAgent to a registry profile.
func (a FixtureAgent) Profile() registry.Profile {
	status := registry.InitialStatus(a.Maturity)
	if a.Status != "" {
		status.UnmarshalText([]byte(a.Status))
	}
	name := a.Name
	if name == "" {
		name = a.ID
	}
	return registry.Profile{
		ID:           a.ID,
		Name:         name,
		Domain:       a.Domain,
		Maturity:     a.Maturity,
		Plasticity:   a.Plasticity,
		Status:       status,
		Capabilities: a.Capabilities,
	}
}

// #endregion fixture-loader
