package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NaturesHolismMELV/AIOS/internal/kernel"
	"github.com/NaturesHolismMELV/AIOS/internal/replay"
	"github.com/NaturesHolismMELV/AIOS/internal/report"
)

// #region replay-cmd
func newReplayCmd(g *globalFlags) *cobra.Command {
	var fixturePath string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a scenario fixture through a fresh kernel",
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

			f, err := replay.LoadFixture(fixturePath)
			if err != nil {
				return err
			}
			results, summary, err := replay.Replay(f, kernel.Options{Logger: logger})
			if err != nil {
				return err
			}

			if g.jsonOut {
				err = report.JSON(cmd.OutOrStdout(), struct {
					Description string              `json:"description"`
					Results     []replay.StepResult `json:"results"`
					Summary     replay.Summary      `json:"summary"`
				}{f.Description, results, summary})
			} else {
				err = report.Replay(cmd.OutOrStdout(), results, summary, g.styles(cfg))
			}
			if err != nil {
				return err
			}
			if !summary.OK() {
				return fmt.Errorf("replay %s: %d mismatches", fixturePath, summary.Mismatches)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "path to fixture JSON")
	cmd.MarkFlagRequired("fixture")
	return cmd
}

// #endregion replay-cmd
