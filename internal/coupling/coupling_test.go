package coupling

import (
	"math"
	"testing"

	"github.com/NaturesHolismMELV/AIOS/internal/ledger"
	"github.com/NaturesHolismMELV/AIOS/internal/stability"
)

func r(a, b string, cost, benefit float64) ledger.Record {
	return ledger.Record{AgentA: a, AgentB: b, Cost: cost, Benefit: benefit, Beta: 1.0}
}

func TestEstimateThreeAgents(t *testing.T) {
	var recs []ledger.Record
	for i := 0; i < 15; i++ {
		recs = append(recs, r("P", "Q", 0.3, 0.9), r("Q", "R", 0.2, 0.8))
	}

	net := Estimate(recs, 3)
	if net.N != 3 {
		t.Fatalf("expected n=3, got %d", net.N)
	}
	if len(net.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(net.Edges))
	}

	pq := 1 - 0.3/0.9
	qr := 1 - 0.2/0.8
	if math.Abs(net.Edges[0].Weight-pq) > 1e-9 || math.Abs(net.Edges[1].Weight-qr) > 1e-9 {
		t.Fatalf("unexpected weights: %+v", net.Edges)
	}
	if net.Edges[0].Samples != 15 {
		t.Fatalf("expected 15 samples, got %d", net.Edges[0].Samples)
	}
	for _, e := range net.Edges {
		if e.Class != stability.Cooperative {
			t.Fatalf("expected cooperative edge, got %s", e.Class)
		}
	}

	wantLambda := (pq + qr) / math.Sqrt(3)
	if math.Abs(net.ApproxLambdaMax-wantLambda) > 1e-9 {
		t.Fatalf("expected λ %v, got %v", wantLambda, net.ApproxLambdaMax)
	}
	if math.Abs(net.CouplingStrength-wantLambda/3) > 1e-9 {
		t.Fatalf("expected strength %v, got %v", wantLambda/3, net.CouplingStrength)
	}
	if net.CouplingStrength < 0 {
		t.Fatal("coupling strength must be non-negative for cooperative traffic")
	}
}

func TestEstimateUnorderedPairs(t *testing.T) {
	recs := []ledger.Record{
		r("B", "A", 0.5, 1.0),
		r("A", "B", 0.1, 1.0),
	}
	net := Estimate(recs, 2)
	if len(net.Edges) != 1 {
		t.Fatalf("expected 1 merged edge, got %d", len(net.Edges))
	}
	e := net.Edges[0]
	if e.AgentA != "A" || e.AgentB != "B" {
		t.Fatalf("expected sorted pair, got %s/%s", e.AgentA, e.AgentB)
	}
	if math.Abs(e.Weight-0.7) > 1e-9 {
		t.Fatalf("expected mean weight 0.7, got %v", e.Weight)
	}
}

func TestEstimateEdgeClasses(t *testing.T) {
	recs := []ledger.Record{
		r("A", "B", 0.2, 1.0), // w 0.8
		r("A", "C", 0.8, 1.0), // w 0.2
		r("B", "C", 1.0, 1.0), // w 0
		r("C", "D", 0.5, 0),   // w 1-2 = -1
	}
	net := Estimate(recs, 4)
	want := []stability.Class{stability.Cooperative, stability.Threshold, stability.Conflict, stability.Conflict}
	for i, e := range net.Edges {
		if e.Class != want[i] {
			t.Errorf("edge %d (%s-%s w=%.2f): expected %s, got %s", i, e.AgentA, e.AgentB, e.Weight, want[i], e.Class)
		}
	}
}

func TestClassifyWeightBoundaries(t *testing.T) {
	if ClassifyWeight(0.30) != stability.Threshold {
		t.Fatal("0.30 should be threshold")
	}
	if ClassifyWeight(0.3000001) != stability.Cooperative {
		t.Fatal("just above 0.30 should be cooperative")
	}
	if ClassifyWeight(0) != stability.Conflict {
		t.Fatal("0 should be conflict")
	}
}

func TestEstimateNoAgents(t *testing.T) {
	net := Estimate([]ledger.Record{r("A", "B", 0.1, 1)}, 0)
	if net.N != 0 || net.ApproxLambdaMax != 0 || net.CouplingStrength != 0 || len(net.Edges) != 0 {
		t.Fatalf("expected empty network, got %+v", net)
	}
}

func TestEstimateSingleAgentGuard(t *testing.T) {
	net := Estimate([]ledger.Record{r("A", "A", 0.5, 1)}, 1)
	if net.ApproxLambdaMax != 0.5 || net.CouplingStrength != 0.5 {
		t.Fatalf("expected λ=β_service=0.5 with n=1, got %+v", net)
	}
}

func TestEstimateNoRecords(t *testing.T) {
	net := Estimate(nil, 5)
	if net.N != 5 || len(net.Edges) != 0 || net.ApproxLambdaMax != 0 {
		t.Fatalf("unexpected network %+v", net)
	}
}
