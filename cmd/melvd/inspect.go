package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/NaturesHolismMELV/AIOS/internal/journal"
	"github.com/NaturesHolismMELV/AIOS/internal/ledger"
	"github.com/NaturesHolismMELV/AIOS/internal/report"
)

// #region inspect-cmd
type inspectOutput struct {
	Run          string             `json:"run_id,omitempty"`
	Runs         []journal.RunInfo  `json:"runs"`
	Counts       journal.Counts     `json:"counts"`
	Events       []journal.EventRow `json:"events"`
	Interactions []ledger.Record    `json:"interactions"`
}

func newInspectCmd(g *globalFlags) *cobra.Command {
	var (
		journalPath string
		last        int
		run         string
		allRuns     bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show recent journal activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if journalPath == "" {
				journalPath = cfg.Journal.Path
			}
			if journalPath == "" {
				return cmd.Usage()
			}

			if _, err := os.Stat(journalPath); err != nil {
				return fmt.Errorf("journal: %w", err)
			}
			store, err := journal.Open(journalPath)
			if err != nil {
				return err
			}
			defer store.Close()

			out := inspectOutput{}
			if out.Runs, err = store.Runs(); err != nil {
				return err
			}
			if !allRuns {
				if out.Run, err = resolveRun(store, run); err != nil {
					return err
				}
			}
			if out.Counts, err = store.Counts(out.Run); err != nil {
				return err
			}
			if out.Events, err = store.RecentEvents(out.Run, last); err != nil {
				return err
			}
			if out.Interactions, err = store.RecentInteractions(out.Run, last); err != nil {
				return err
			}
			// store returns newest first; show chronologically
			slices.Reverse(out.Events)
			slices.Reverse(out.Interactions)

			w := cmd.OutOrStdout()
			if g.jsonOut {
				return report.JSON(w, out)
			}
			st := g.styles(cfg)
			if err := report.Runs(w, out.Runs, out.Run, st); err != nil {
				return err
			}
			if err := report.Counts(w, out.Counts, st); err != nil {
				return err
			}
			if err := report.Interactions(w, out.Interactions, st); err != nil {
				return err
			}
			return report.JournalEvents(w, out.Events, st)
		},
	}
	cmd.Flags().StringVar(&journalPath, "journal", "", "path to journal database (defaults to journal.path)")
	cmd.Flags().IntVar(&last, "last", 20, "show N most recent entries")
	cmd.Flags().StringVar(&run, "run", "", "run id to show (defaults to the latest run)")
	cmd.Flags().BoolVar(&allRuns, "all-runs", false, "show entries from every run")
	cmd.MarkFlagsMutuallyExclusive("run", "all-runs")
	return cmd
}

// resolveRun returns run, or the journal's latest run when run is empty.
func resolveRun(store *journal.Store, run string) (string, error) {
	if run != "" {
		return run, nil
	}
	return store.LatestRun()
}

// #endregion inspect-cmd
