// Package simulate drives a kernel with synthetic interactions between its
// registered agents. It only uses the kernel's public operations.
package simulate

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NaturesHolismMELV/AIOS/internal/environment"
	"github.com/NaturesHolismMELV/AIOS/internal/ledger"
	"github.com/NaturesHolismMELV/AIOS/internal/registry"
	"github.com/NaturesHolismMELV/AIOS/internal/stability"
)

// #region config
// Config controls pacing and the mix of generated interactions.
type Config struct {
	MinInterval  time.Duration
	MaxInterval  time.Duration
	ConflictRate float64
	MaturityRate float64
	// Seed 0 picks a time-based seed.
	Seed uint64
}

// DefaultConfig mirrors the daemon defaults.
func DefaultConfig() Config {
	return Config{
		MinInterval:  2 * time.Second,
		MaxInterval:  5 * time.Second,
		ConflictRate: 0.12,
		MaturityRate: 0.3,
	}
}

// Kernel is the part of the kernel the driver calls.
type Kernel interface {
	ListAgents() []registry.Profile
	RecordInteraction(agentA, agentB string, cost, benefit float64, resource string) ledger.Record
	UpdateMaturity(id string, quality float64)
}

// #endregion config

// #region driver
// Driver generates one interaction per Step. A Driver is not safe for
// concurrent use; run one per goroutine.
type Driver struct {
	k      Kernel
	cfg    Config
	rng    *rand.Rand
	logger *slog.Logger
}

// NewDriver creates a driver. A nil logger discards output.
func NewDriver(k Kernel, cfg Config, logger *slog.Logger) *Driver {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{
		k:      k,
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(seed, seed^0xda942042e4dd58b5)),
		logger: logger.With("component", "simulate"),
	}
}

// Step records one interaction between two distinct random agents. ok is
// false when fewer than two agents are registered.
func (d *Driver) Step() (rec ledger.Record, ok bool) {
	agents := d.k.ListAgents()
	if len(agents) < 2 {
		return ledger.Record{}, false
	}
	i := d.rng.IntN(len(agents))
	j := d.rng.IntN(len(agents) - 1)
	if j >= i {
		j++
	}
	a, b := agents[i].ID, agents[j].ID

	var cost, benefit float64
	if d.rng.Float64() < d.cfg.ConflictRate {
		cost, benefit = d.uniform(0.8, 1.4), d.uniform(0.6, 1.0)
	} else {
		cost, benefit = d.uniform(0.1, 0.6), d.uniform(0.5, 1.2)
	}
	resource := environment.Resources[d.rng.IntN(len(environment.Resources))]

	rec = d.k.RecordInteraction(a, b, cost, benefit, resource.String())
	if d.rng.Float64() < d.cfg.MaturityRate {
		d.k.UpdateMaturity(a, stability.OutcomeQuality(cost, benefit))
	}
	return rec, true
}

// Run steps at random intervals in [MinInterval, MaxInterval] until ctx is
// done.
func (d *Driver) Run(ctx context.Context) error {
	timer := time.NewTimer(d.interval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		if rec, ok := d.Step(); ok {
			d.logger.Debug("simulated interaction",
				"seq", rec.Seq, "agent_a", rec.AgentA, "agent_b", rec.AgentB,
				"beta_i", rec.BetaI(), "class", rec.Class().String())
		}
		timer.Reset(d.interval())
	}
}

func (d *Driver) interval() time.Duration {
	lo, hi := d.cfg.MinInterval, d.cfg.MaxInterval
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(d.rng.Int64N(int64(hi-lo)))
}

func (d *Driver) uniform(lo, hi float64) float64 {
	return lo + d.rng.Float64()*(hi-lo)
}

// #endregion driver

// #region run-agents
// RunAgents runs workers drivers against k concurrently until ctx is done.
// Worker n is seeded with cfg.Seed+n when a seed is set.
func RunAgents(ctx context.Context, k Kernel, cfg Config, workers int, logger *slog.Logger) error {
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for n := range workers {
		wcfg := cfg
		if cfg.Seed != 0 {
			wcfg.Seed = cfg.Seed + uint64(n)
		}
		d := NewDriver(k, wcfg, logger)
		g.Go(func() error { return d.Run(ctx) })
	}
	return g.Wait()
}

// #endregion run-agents
