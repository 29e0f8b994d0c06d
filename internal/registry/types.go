package registry

import (
	"fmt"
	"slices"
	"time"
)

// #region bounds
const (
	MinMaturity   = 0.0
	MaxMaturity   = 1.0
	MinPlasticity = 0.0
	MaxPlasticity = 8.0

	// PromoteMaturity moves a maturing agent to active.
	PromoteMaturity = 0.75
	// ForceActiveMaturity makes an agent active whatever its status.
	ForceActiveMaturity = 0.90

	maturityRate = 0.01
	neutralScore = 0.5
)

// #endregion bounds

// #region status
// Status is the lifecycle state of an agent. Only transitions into Active
// are driven by the registry; the others are set administratively.
type Status int

const (
	StatusMaturing Status = iota
	StatusActive
	StatusThreshold
	StatusSuspended
	StatusRetired
)

// Statuses lists every status in declaration order.
var Statuses = []Status{StatusMaturing, StatusActive, StatusThreshold, StatusSuspended, StatusRetired}

func (s Status) String() string {
	switch s {
	case StatusMaturing:
		return "maturing"
	case StatusActive:
		return "active"
	case StatusThreshold:
		return "threshold"
	case StatusSuspended:
		return "suspended"
	case StatusRetired:
		return "retired"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	if s < StatusMaturing || s > StatusRetired {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(b []byte) error {
	for _, st := range Statuses {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}

// #endregion status

// #region profile
// Profile is an agent's evolving record.
//
//	Maturity   φ: how well optimized the agent is for its domain, [0, 1]
//	Plasticity ε: how quickly φ responds to outcomes, [0, 8]
type Profile struct {
	ID            string    `json:"agent_id"`
	Name          string    `json:"name"`
	Domain        string    `json:"domain"`
	Maturity      float64   `json:"phi"`
	Plasticity    float64   `json:"epsilon"`
	PreferredBeta float64   `json:"beta_pref"`
	Status        Status    `json:"status"`
	Capabilities  []string  `json:"capabilities"`
	CreatedAt     time.Time `json:"created_at"`
	TaskCount     int       `json:"task_count"`
	SuccessRate   float64   `json:"success_rate"`
}

// MaturityLabel buckets φ into a human-readable tier.
func (p Profile) MaturityLabel() string {
	switch {
	case p.Maturity >= 0.85:
		return "expert"
	case p.Maturity >= 0.65:
		return "proficient"
	case p.Maturity >= 0.40:
		return "developing"
	}
	return "novice"
}

func (p Profile) clone() Profile {
	p.Capabilities = slices.Clone(p.Capabilities)
	return p
}

// #endregion profile

// #region stats
// Stats aggregates the registry for health reports.
type Stats struct {
	Agents         int            `json:"n_agents"`
	MeanMaturity   float64        `json:"mean_phi"`
	MeanPlasticity float64        `json:"mean_epsilon"`
	StatusCounts   map[string]int `json:"agent_status_counts"`
}

// #endregion stats
