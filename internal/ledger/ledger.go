// Package ledger is the append-only log of measured interactions, the source
// of truth for every derived metric.
package ledger

import (
	"time"

	"github.com/NaturesHolismMELV/AIOS/internal/stability"
)

// #region record
// Record is one measured interaction between two agents. It is never
// modified after it has been appended.
type Record struct {
	Seq       uint64    `json:"seq"`
	AgentA    string    `json:"agent_a"`
	AgentB    string    `json:"agent_b"`
	Cost      float64   `json:"cost"`
	Benefit   float64   `json:"benefit"`
	Beta      float64   `json:"beta"`
	Resource  string    `json:"resource_type"`
	CreatedAt time.Time `json:"timestamp"`
}

// IFactor is the interaction coefficient C/B.
func (r Record) IFactor() float64 {
	return stability.IFactor(r.Cost, r.Benefit)
}

// BetaI is the coefficient modulated by the β sampled at record time.
func (r Record) BetaI() float64 {
	return stability.BetaI(r.Beta, r.IFactor())
}

// Class is the stability classification of BetaI.
func (r Record) Class() stability.Class {
	return stability.Classify(r.BetaI())
}

// #endregion record

// #region ledger
// Ledger is an append-only, time-ordered sequence of records. It does no
// locking of its own; the owner serializes access.
type Ledger struct {
	records []Record
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append assigns the next sequence number and stores the record.
func (l *Ledger) Append(r Record) Record {
	r.Seq = uint64(len(l.records)) + 1
	l.records = append(l.records, r)
	return r
}

// Len is the number of records appended so far.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Recent returns a copy of the last n records, oldest first. n ≤ 0 or
// larger than the ledger returns everything.
func (l *Ledger) Recent(n int) []Record {
	return Tail(l.records, n)
}

// #endregion ledger

// #region tail
// Tail copies the last n elements of s. n ≤ 0 copies the whole slice.
func Tail[T any](s []T, n int) []T {
	start := 0
	if n > 0 && n < len(s) {
		start = len(s) - n
	}
	out := make([]T, len(s)-start)
	copy(out, s[start:])
	return out
}

// #endregion tail
