// Package stability holds the pure coefficient math of the governance kernel:
// the interaction coefficient i = C/B, its environment-modulated form βi and
// the three-way stability classification.
package stability

import (
	"fmt"
	"math"
)

// #region thresholds
const (
	// CooperativeThreshold is the lower edge of the threshold zone.
	CooperativeThreshold = 0.70
	// ConflictThreshold is the lower edge of the conflict zone.
	ConflictThreshold = 1.00
	// DegenerateIFactor is the coefficient assigned when there is no
	// measurable benefit. It sits above ConflictThreshold so such
	// interactions are always flagged.
	DegenerateIFactor = 2.0

	minQualityCost = 0.01
)

// #endregion thresholds

// #region class
// Class is the stability classification of a modulated coefficient.
type Class int

const (
	Cooperative Class = iota // βi < 0.70
	Threshold                // 0.70 ≤ βi < 1.00
	Conflict                 // βi ≥ 1.00
)

// Classes lists every class in severity order.
var Classes = []Class{Cooperative, Threshold, Conflict}

func (c Class) String() string {
	switch c {
	case Cooperative:
		return "cooperative"
	case Threshold:
		return "threshold"
	case Conflict:
		return "conflict"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// MarshalText encodes the class by name.
func (c Class) MarshalText() ([]byte, error) {
	switch c {
	case Cooperative, Threshold, Conflict:
		return []byte(c.String()), nil
	}
	return nil, fmt.Errorf("unknown stability class %d", int(c))
}

// UnmarshalText decodes a class name.
func (c *Class) UnmarshalText(b []byte) error {
	parsed, err := ParseClass(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClass maps a class name back to its value.
func ParseClass(s string) (Class, error) {
	for _, c := range Classes {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown stability class %q", s)
}

// #endregion class

// #region coefficients
// IFactor returns cost/benefit, or DegenerateIFactor when benefit ≤ 0.
func IFactor(cost, benefit float64) float64 {
	if benefit <= 0 {
		return DegenerateIFactor
	}
	return cost / benefit
}

// BetaI modulates an interaction coefficient by the environment scalar.
func BetaI(beta, i float64) float64 {
	return beta * i
}

// Classify buckets a modulated coefficient. Both boundaries are inclusive on
// the upper zone: 0.70 is Threshold and 1.00 is Conflict.
func Classify(betaI float64) Class {
	switch {
	case betaI < CooperativeThreshold:
		return Cooperative
	case betaI < ConflictThreshold:
		return Threshold
	default:
		return Conflict
	}
}

// OutcomeQuality turns a cost/benefit pair into a [0,1]-capped quality score
// suitable for a maturity update. Cost is floored at 0.01.
func OutcomeQuality(cost, benefit float64) float64 {
	return math.Min(1.0, benefit/math.Max(cost, minQualityCost))
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// #endregion coefficients
