// Package environment models β, the per-resource suitability scalars that
// modulate every interaction coefficient.
package environment

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/NaturesHolismMELV/AIOS/internal/stability"
)

// #region bounds
const (
	MinBeta     = 0.1
	MaxBeta     = 3.0
	NeutralBeta = 1.0
)

// ErrUnknownResource is returned when a resource name is outside the closed set.
var ErrUnknownResource = errors.New("unknown resource")

// #endregion bounds

// #region resource
// Resource is one of the closed set of resource channels.
type Resource int

const (
	Compute Resource = iota
	APIQuota
	VectorStore
	Storage
	TokenBudget

	numResources
)

// Resources lists every channel in declaration order.
var Resources = []Resource{Compute, APIQuota, VectorStore, Storage, TokenBudget}

var resourceNames = [numResources]string{
	Compute:     "compute",
	APIQuota:    "api_quota",
	VectorStore: "vector_store",
	Storage:     "storage",
	TokenBudget: "token_budget",
}

var defaultBeta = [numResources]float64{
	Compute:     1.0,
	APIQuota:    0.9,
	VectorStore: 1.2,
	Storage:     0.8,
	TokenBudget: 1.1,
}

var aliases = map[string]Resource{
	"vector_db": VectorStore,
}

func (r Resource) String() string {
	if r < 0 || r >= numResources {
		return fmt.Sprintf("resource(%d)", int(r))
	}
	return resourceNames[r]
}

// Default returns the baseline β of the channel.
func (r Resource) Default() float64 {
	if r < 0 || r >= numResources {
		return NeutralBeta
	}
	return defaultBeta[r]
}

// MarshalText encodes the resource by its canonical name.
func (r Resource) MarshalText() ([]byte, error) {
	if r < 0 || r >= numResources {
		return nil, fmt.Errorf("%w: %d", ErrUnknownResource, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes any accepted spelling of a resource name.
func (r *Resource) UnmarshalText(b []byte) error {
	parsed, err := ParseResource(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseResource resolves a resource name. Hyphenated spellings and the
// legacy "vector_db" name are accepted.
func ParseResource(name string) (Resource, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for r, n := range resourceNames {
		if n == key {
			return Resource(r), nil
		}
	}
	if r, ok := aliases[key]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("%w %q (valid: %s)", ErrUnknownResource, name, strings.Join(resourceNames[:], ", "))
}

// #endregion resource

// #region environment
// Environment holds one β per channel. Each channel is read and written
// atomically so a provisioning write never tears a concurrent read.
type Environment struct {
	channels [numResources]atomic.Uint64
}

// New returns an environment at its default baselines.
func New() *Environment {
	e := &Environment{}
	for _, r := range Resources {
		e.channels[r].Store(math.Float64bits(r.Default()))
	}
	return e
}

// Get returns the current β of a channel.
func (e *Environment) Get(r Resource) float64 {
	if r < 0 || r >= numResources {
		return NeutralBeta
	}
	return math.Float64frombits(e.channels[r].Load())
}

// Lookup returns β for a channel name, falling back to NeutralBeta for names
// outside the closed set.
func (e *Environment) Lookup(name string) float64 {
	r, err := ParseResource(name)
	if err != nil {
		return NeutralBeta
	}
	return e.Get(r)
}

// Provision stores a clamped β for the channel and returns the stored value.
func (e *Environment) Provision(r Resource, value float64) float64 {
	if r < 0 || r >= numResources {
		return NeutralBeta
	}
	v := stability.Clamp(value, MinBeta, MaxBeta)
	if math.IsNaN(value) {
		v = r.Default()
	}
	e.channels[r].Store(math.Float64bits(v))
	return v
}

// Values snapshots every channel keyed by canonical name.
func (e *Environment) Values() map[string]float64 {
	out := make(map[string]float64, numResources)
	for _, r := range Resources {
		out[r.String()] = e.Get(r)
	}
	return out
}

// Mean is the average β across all channels.
func (e *Environment) Mean() float64 {
	var sum float64
	for _, r := range Resources {
		sum += e.Get(r)
	}
	return sum / float64(numResources)
}

// #endregion environment
