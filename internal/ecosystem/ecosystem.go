// Package ecosystem defines the stock agent population the daemon starts with.
package ecosystem

import (
	"slices"

	"github.com/NaturesHolismMELV/AIOS/internal/registry"
)

// #region specs
// AgentSpec is the static description of an agent before it is registered.
type AgentSpec struct {
	Name          string   `json:"name"`
	Domain        string   `json:"domain"`
	Maturity      float64  `json:"phi"`
	Plasticity    float64  `json:"epsilon"`
	PreferredBeta float64  `json:"beta_pref"`
	Capabilities  []string `json:"capabilities"`
}

var defaults = []AgentSpec{
	{"RESEARCH", "knowledge retrieval & synthesis", 0.82, 3.2, 1.1,
		[]string{"web_search", "summarization", "citation"}},
	{"ANALYSIS", "data analysis & pattern recognition", 0.78, 5.5, 1.2,
		[]string{"statistical_analysis", "pattern_detection", "reporting"}},
	{"WRITER", "content generation & documentation", 0.71, 2.4, 0.9,
		[]string{"drafting", "editing", "summarization", "documentation"}},
	{"CODE", "software development & debugging", 0.91, 6.8, 1.3,
		[]string{"python", "javascript", "testing", "debugging", "refactoring"}},
	{"MONITOR", "observability & health monitoring", 0.95, 7.5, 0.8,
		[]string{"metrics", "alerting", "logging", "tracing"}},
	{"PLANNER", "strategic planning & task orchestration", 0.85, 1.8, 1.0,
		[]string{"decomposition", "scheduling", "prioritization", "coordination"}},
	{"DATA", "data retrieval & transformation", 0.58, 5.2, 1.1,
		[]string{"sql", "api_calls", "etl", "caching"}},
	{"SEARCH", "web search & instant answers", 0.65, 4.5, 1.0,
		[]string{"web_search", "instant_answers", "definitions", "facts"}},
}

// Defaults returns a copy of the stock population.
func Defaults() []AgentSpec {
	out := make([]AgentSpec, len(defaults))
	for i, s := range defaults {
		s.Capabilities = slices.Clone(s.Capabilities)
		out[i] = s
	}
	return out
}

// Profile builds a registrable profile with a fresh ID.
func (s AgentSpec) Profile() registry.Profile {
	return registry.Profile{
		ID:            registry.NewAgentID(s.Name),
		Name:          s.Name,
		Domain:        s.Domain,
		Maturity:      s.Maturity,
		Plasticity:    s.Plasticity,
		PreferredBeta: s.PreferredBeta,
		Status:        registry.InitialStatus(s.Maturity),
		Capabilities:  slices.Clone(s.Capabilities),
	}
}

// #endregion specs

// #region seed
// Registrar is anything agents can be registered with.
type Registrar interface {
	RegisterAgent(p registry.Profile) registry.Profile
}

// Seed registers every AgentSpec and returns the stored profiles in order.
func Seed(r Registrar, specs []AgentSpec) []registry.Profile {
	out := make([]registry.Profile, 0, len(specs))
	for _, s := range specs {
		out = append(out, r.RegisterAgent(s.Profile()))
	}
	return out
}

// #endregion seed
