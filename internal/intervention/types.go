package intervention

import (
	"fmt"
	"time"
)

// #region action
// Action is the corrective measure chosen for an unstable interaction.
type Action int

const (
	ActionNudge Action = iota
	ActionNicheDivergence
	ActionRouteService    // reserved
	ActionAgentSubstitute // reserved
	ActionProvisionBeta
)

// Actions lists every action in declaration order.
var Actions = []Action{ActionNudge, ActionNicheDivergence, ActionRouteService, ActionAgentSubstitute, ActionProvisionBeta}

func (a Action) String() string {
	switch a {
	case ActionNudge:
		return "nudge"
	case ActionNicheDivergence:
		return "niche_divergence"
	case ActionRouteService:
		return "route_service"
	case ActionAgentSubstitute:
		return "agent_substitute"
	case ActionProvisionBeta:
		return "provision_beta"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// MarshalText encodes the action by name.
func (a Action) MarshalText() ([]byte, error) {
	if a < ActionNudge || a > ActionProvisionBeta {
		return nil, fmt.Errorf("unknown action %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText decodes an action name.
func (a *Action) UnmarshalText(b []byte) error {
	parsed, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction maps an action name back to its value.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// #endregion action

// #region event
// Event records one intervention. BetaIPost is a projection only; nothing
// downstream applies it.
type Event struct {
	ID          string    `json:"event_id"`
	AgentA      string    `json:"agent_a"`
	AgentB      string    `json:"agent_b"`
	BetaIPre    float64   `json:"beta_i_pre"`
	BetaIPost   float64   `json:"beta_i_post"`
	Action      Action    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"timestamp"`
	Resolved    bool      `json:"resolved"`
}

// #endregion event

// #region config
// Config holds the constants of the intervention rules.
type Config struct {
	NudgeSigma        float64 // σ of the perturbation η
	NudgeStep         float64 // fixed drop applied on top of |η|
	NudgeFloor        float64 // lowest projected βi after a nudge
	ProvisionCutoff   float64 // conflicts at or above this get β provisioning
	NicheFactor       float64 // βi multiplier for niche divergence
	ProvisionFactor   float64 // βi multiplier for β provisioning
	ConflictThreshold float64 // projections below this count as resolved
}

// DefaultConfig returns the standard intervention constants.
func DefaultConfig() Config {
	return Config{
		NudgeSigma:        0.05,
		NudgeStep:         0.08,
		NudgeFloor:        0.1,
		ProvisionCutoff:   1.6,
		NicheFactor:       0.65,
		ProvisionFactor:   0.50,
		ConflictThreshold: 1.00,
	}
}

// #endregion config
