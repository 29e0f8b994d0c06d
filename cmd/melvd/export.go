package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/NaturesHolismMELV/AIOS/internal/intervention"
	"github.com/NaturesHolismMELV/AIOS/internal/journal"
	"github.com/NaturesHolismMELV/AIOS/internal/replay"
)

// #region export-cmd
func newExportCmd(g *globalFlags) *cobra.Command {
	var (
		journalPath string
		outPath     string
		last        int
		run         string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recent journal interactions as a replay fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(journalPath); err != nil {
				return fmt.Errorf("journal: %w", err)
			}
			store, err := journal.Open(journalPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if run, err = resolveRun(store, run); err != nil {
				return err
			}
			recs, err := store.RecentInteractions(run, last)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				return fmt.Errorf("no interactions in %s", journalPath)
			}
			// The events for the last N interactions are among the run's last N events.
			rows, err := store.RecentEvents(run, last)
			if err != nil {
				return err
			}
			slices.Reverse(recs)
			events := make(map[uint64]intervention.Event, len(rows))
			for _, r := range rows {
				if r.Seq != 0 {
					events[r.Seq] = r.Event
				}
			}

			desc := fmt.Sprintf("Exported from %s run %s: seq %d..%d", journalPath, run, recs[0].Seq, recs[len(recs)-1].Seq)
			f := replay.Export(desc, recs, events)
			data, err := json.MarshalIndent(f, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal fixture: %w", err)
			}
			if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
				return fmt.Errorf("write fixture: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d interactions (%d events) to %s\n", len(recs), len(events), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&journalPath, "journal", "", "path to journal database")
	cmd.Flags().StringVar(&outPath, "out", "", "output fixture JSON path")
	cmd.Flags().IntVar(&last, "last", 50, "number of most recent interactions to export")
	cmd.Flags().StringVar(&run, "run", "", "run id to export (defaults to the latest run)")
	cmd.MarkFlagRequired("journal")
	cmd.MarkFlagRequired("out")
	return cmd
}

// #endregion export-cmd
