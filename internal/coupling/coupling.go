// Package coupling estimates the service-coupling network of the ecosystem
// from a recent window of interactions.
//
// The estimate stands in for a dominant-eigenvalue measure λ_max(Ω) of the
// pairwise coupling matrix Ω. It does not decompose the matrix; it sums edge
// weights and scales by √n, which tracks λ_max for dense, evenly weighted
// graphs and is cheap enough to recompute on every snapshot.
package coupling

import (
	"math"

	"github.com/NaturesHolismMELV/AIOS/internal/ledger"
	"github.com/NaturesHolismMELV/AIOS/internal/stability"
)

// #region constants
const (
	// Window is the number of most recent records the estimate uses.
	Window = 100
	// CooperativeWeight is the edge weight above which a pair is cooperative.
	CooperativeWeight = 0.30
)

// #endregion constants

// #region types
// Edge is the averaged coupling between one unordered pair of agents.
// AgentA sorts before AgentB.
type Edge struct {
	AgentA  string          `json:"agent_a"`
	AgentB  string          `json:"agent_b"`
	Weight  float64         `json:"weight"`
	Samples int             `json:"samples"`
	Class   stability.Class `json:"interaction_type"`
}

// Network is the estimated coupling graph.
type Network struct {
	ApproxLambdaMax  float64 `json:"lambda_max"`
	N                int     `json:"n"`
	CouplingStrength float64 `json:"beta_service"`
	TotalWeight      float64 `json:"total_weight"`
	Edges            []Edge  `json:"edges"`
}

// #endregion types

// #region estimate
// Estimate builds the network from records for a population of n agents.
// Each pair's weight is the mean of 1 − i over its records, so higher is more
// cooperative. Edges keep the order in which pairs first appear.
//
//	λ_max ≈ Σw / max(1, √n)
//	β_service = λ_max / n
//
// An empty population yields an empty network.
func Estimate(records []ledger.Record, n int) Network {
	if n <= 0 {
		return Network{Edges: []Edge{}}
	}

	type acc struct {
		sum   float64
		count int
	}
	sums := make(map[[2]string]*acc)
	var order [][2]string
	for _, r := range records {
		key := pairKey(r.AgentA, r.AgentB)
		a, ok := sums[key]
		if !ok {
			a = &acc{}
			sums[key] = a
			order = append(order, key)
		}
		a.sum += 1.0 - r.IFactor()
		a.count++
	}

	edges := make([]Edge, 0, len(order))
	var total float64
	for _, key := range order {
		a := sums[key]
		w := a.sum / float64(a.count)
		edges = append(edges, Edge{
			AgentA:  key[0],
			AgentB:  key[1],
			Weight:  w,
			Samples: a.count,
			Class:   ClassifyWeight(w),
		})
		total += w
	}

	lambda := total / math.Max(1, math.Sqrt(float64(n)))
	return Network{
		ApproxLambdaMax:  lambda,
		N:                n,
		CouplingStrength: lambda / float64(n),
		TotalWeight:      total,
		Edges:            edges,
	}
}

// ClassifyWeight buckets an edge weight: cooperative above 0.30, threshold
// in (0, 0.30], conflict at or below zero.
func ClassifyWeight(w float64) stability.Class {
	switch {
	case w > CooperativeWeight:
		return stability.Cooperative
	case w > 0:
		return stability.Threshold
	default:
		return stability.Conflict
	}
}

func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// #endregion estimate
