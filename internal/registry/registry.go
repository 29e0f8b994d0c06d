// Package registry keeps agent profiles and owns the rules by which their
// maturity evolves.
package registry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NaturesHolismMELV/AIOS/internal/stability"
	"github.com/google/uuid"
)

// #region registry
// Registry maps agent identity to profile. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Profile
	order  []string
	now    func() time.Time
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		agents: make(map[string]*Profile),
		now:    time.Now,
	}
}

// NewWithClock returns an empty registry stamping profiles with now.
func NewWithClock(now func() time.Time) *Registry {
	r := New()
	if now != nil {
		r.now = now
	}
	return r
}

// #endregion registry

// #region register
// Register stores the profile under its ID. An existing profile with the same
// ID is replaced without complaint. φ and ε are clamped into range.
func (r *Registry) Register(p Profile) Profile {
	p = p.clone()
	p.Maturity = stability.Clamp(p.Maturity, MinMaturity, MaxMaturity)
	p.Plasticity = stability.Clamp(p.Plasticity, MinPlasticity, MaxPlasticity)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	r.agents[p.ID] = &p
	return p.clone()
}

// #endregion register

// #region get
// Get returns a copy of the profile. ok is false if the ID is unknown.
func (r *Registry) Get(id string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.agents[id]
	if !ok {
		return Profile{}, false
	}
	return p.clone(), true
}

// #endregion get

// #region update-maturity
// UpdateMaturity folds one task outcome into the agent's profile:
//
//	delta = ε × 0.01 × (quality − 0.5)
//	φ     = clamp(φ + delta, 0, 1)
//
// The task count and rolling success mean advance, and a high enough φ
// promotes the agent to Active. quality is used as given, so values outside
// [0, 1] drift φ faster. Unknown IDs are skipped; the return value reports
// whether a profile was updated.
func (r *Registry) UpdateMaturity(id string, quality float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.agents[id]
	if !ok {
		return false
	}

	delta := p.Plasticity * maturityRate * (quality - neutralScore)
	p.Maturity = stability.Clamp(p.Maturity+delta, MinMaturity, MaxMaturity)
	p.TaskCount++

	mean := (p.SuccessRate*float64(p.TaskCount-1) + quality) / float64(p.TaskCount)
	p.SuccessRate = stability.Clamp(mean, 0, 1)

	if p.Maturity >= PromoteMaturity && p.Status == StatusMaturing {
		p.Status = StatusActive
	} else if p.Maturity >= ForceActiveMaturity {
		p.Status = StatusActive
	}
	return true
}

// #endregion update-maturity

// #region list
// List returns every profile in registration order.
func (r *Registry) List() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Profile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id].clone())
	}
	return out
}

// IDs returns agent IDs in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len is the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Stats computes mean φ, mean ε and per-status counts.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{Agents: len(r.agents), StatusCounts: map[string]int{}}
	if s.Agents == 0 {
		return s
	}
	var phi, eps float64
	for _, p := range r.agents {
		phi += p.Maturity
		eps += p.Plasticity
		s.StatusCounts[p.Status.String()]++
	}
	s.MeanMaturity = phi / float64(s.Agents)
	s.MeanPlasticity = eps / float64(s.Agents)
	return s
}

// #endregion list

// #region helpers
// NewAgentID derives an ID of the form NAME-xxxx from a display name.
func NewAgentID(name string) string {
	base := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
	if base == "" {
		base = "AGENT"
	}
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:4])
}

// InitialStatus is the status a freshly built agent starts in.
func InitialStatus(maturity float64) Status {
	if maturity > 0.6 {
		return StatusActive
	}
	return StatusMaturing
}

// #endregion helpers
