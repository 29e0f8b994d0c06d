package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/NaturesHolismMELV/AIOS/internal/config"
	"github.com/NaturesHolismMELV/AIOS/internal/ecosystem"
	"github.com/NaturesHolismMELV/AIOS/internal/intervention"
	"github.com/NaturesHolismMELV/AIOS/internal/journal"
	"github.com/NaturesHolismMELV/AIOS/internal/kernel"
	"github.com/NaturesHolismMELV/AIOS/internal/report"
	"github.com/NaturesHolismMELV/AIOS/internal/simulate"
)

// #region run-cmd
func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		duration  time.Duration
		markdown  bool
		reportOut string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the kernel over the default ecosystem",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			logger, closeLog, err := g.logger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			k, err := runDaemon(ctx, cfg, g.configPath, logger)
			if err != nil {
				return err
			}
			h := k.EcosystemHealth()
			if reportOut != "" {
				if err := os.WriteFile(reportOut, []byte(report.Markdown(h)), 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				logger.Info("report written", "path", reportOut)
			}
			switch {
			case g.jsonOut:
				return report.JSON(cmd.OutOrStdout(), h)
			case markdown:
				return report.RenderMarkdown(cmd.OutOrStdout(), report.Markdown(h), !cfg.Log.NoColor, 0)
			}
			return report.Health(cmd.OutOrStdout(), h, g.styles(cfg))
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print the final report as rendered markdown")
	cmd.Flags().StringVar(&reportOut, "report-out", "", "also write the final report as markdown to this file")
	return cmd
}

// #endregion run-cmd

// #region daemon
// runDaemon wires the kernel, journal, simulation and config watcher and
// blocks until ctx is done. The journal is drained after the simulation stops
// so no late record is lost.
func runDaemon(ctx context.Context, cfg config.Config, cfgPath string, logger *slog.Logger) (*kernel.Kernel, error) {
	provisioning, err := cfg.Provisioning()
	if err != nil {
		return nil, err
	}
	opts := kernel.Options{Logger: logger}
	if cfg.Simulation.Seed != 0 {
		opts.Noise = intervention.NewNoise(cfg.Simulation.Seed)
	}

	var (
		recorder *journal.Recorder
		recDone  = make(chan struct{})
	)
	recCtx, recCancel := context.WithCancel(context.Background())
	defer recCancel()
	if cfg.Journal.Path != "" {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		defer store.Close()
		recorder = journal.NewRecorder(store, cfg.Journal.Buffer, logger)
		opts.Observer = recorder
		go func() {
			defer close(recDone)
			recorder.Run(recCtx)
		}()
	} else {
		close(recDone)
	}

	k := kernel.New(opts)
	agents := ecosystem.Seed(k, ecosystem.Defaults())
	for r, v := range provisioning {
		k.ProvisionBeta(r, v)
	}
	logger.Info("kernel ready", "agents", len(agents), "journal", cfg.Journal.Path,
		"simulation", cfg.Simulation.Enabled, "workers", cfg.Simulation.Workers)

	grp, gctx := errgroup.WithContext(ctx)
	if cfg.Simulation.Enabled {
		sim := simulate.Config{
			MinInterval:  cfg.Simulation.MinInterval,
			MaxInterval:  cfg.Simulation.MaxInterval,
			ConflictRate: cfg.Simulation.ConflictRate,
			MaturityRate: cfg.Simulation.MaturityRate,
			Seed:         cfg.Simulation.Seed,
		}
		grp.Go(func() error {
			return simulate.RunAgents(gctx, k, sim, cfg.Simulation.Workers, logger)
		})
	}
	if cfg.HealthInterval > 0 {
		grp.Go(func() error {
			healthLoop(gctx, k, cfg.HealthInterval, logger)
			return nil
		})
	}
	if cfg.Watch && cfgPath != "" {
		grp.Go(func() error {
			return config.Watch(gctx, cfgPath, config.DefaultDebounce, logger, func(next config.Config) {
				applyProvisioning(k, next, logger)
			})
		})
	}
	grp.Go(func() error {
		<-gctx.Done()
		return nil
	})
	err = grp.Wait()

	recCancel()
	<-recDone
	if recorder != nil {
		written, dropped, failed := recorder.Stats()
		logger.Info("journal flushed", "written", written, "dropped", dropped, "failed", failed)
	}
	return k, err
}

// applyProvisioning provisions every channel whose configured β differs from
// the kernel's.
func applyProvisioning(k *kernel.Kernel, cfg config.Config, logger *slog.Logger) {
	provisioning, err := cfg.Provisioning()
	if err != nil {
		logger.Warn("provisioning skipped", "error", err)
		return
	}
	for r, v := range provisioning {
		if k.Beta(r) != v {
			k.ProvisionBeta(r, v)
		}
	}
}

func healthLoop(ctx context.Context, k *kernel.Kernel, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		h := k.EcosystemHealth()
		attrs := []any{
			"cooperation_index", h.CooperationIndex,
			"mean_beta_i", h.MeanBetaI,
			"interactions", h.TotalInteractions,
			"events", h.TotalEvents,
			"lambda_max", h.Coupling.ApproxLambdaMax,
		}
		if h.Healthy() {
			logger.Info("ecosystem health", attrs...)
		} else {
			logger.Warn("ecosystem below cooperation target", attrs...)
		}
	}
}

// #endregion daemon
