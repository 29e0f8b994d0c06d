// Command melvd runs the MELV governance kernel over a simulated agent
// ecosystem, replays scripted scenarios and inspects the event journal.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/NaturesHolismMELV/AIOS/internal/config"
	"github.com/NaturesHolismMELV/AIOS/internal/logging"
	"github.com/NaturesHolismMELV/AIOS/internal/report"
)

// #region main
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// #endregion main

// #region root
type globalFlags struct {
	configPath string
	logLevel   string
	noColor    bool
	jsonOut    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "melvd",
		Short: "MELV agent-governance kernel",
		Long: `melvd measures the cost/benefit balance of agent interactions and
intervenes when an interaction drifts out of the cooperative basin.

Commands:
  run      Seed the default ecosystem and drive it with simulated traffic
  replay   Run a scripted scenario fixture and check its expectations
  inspect  Show recent interactions and events from a journal database
  export   Turn recent journal activity into a replay fixture`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().BoolVar(&g.jsonOut, "json", false, "output as JSON instead of text")

	root.AddCommand(newRunCmd(g), newReplayCmd(g), newInspectCmd(g), newExportCmd(g))
	return root
}

// #endregion root

// #region helpers
// load reads the config and applies command-line overrides.
func (g *globalFlags) load() (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return cfg, err
	}
	if g.logLevel != "" {
		if _, err := logging.ParseLevel(g.logLevel); err != nil {
			return cfg, err
		}
		cfg.Log.Level = g.logLevel
	}
	if g.noColor {
		cfg.Log.NoColor = true
	}
	return cfg, nil
}

func (g *globalFlags) logger(cfg config.Config, w io.Writer) (*slog.Logger, func() error, error) {
	logger, closeFn, err := logging.New(cfg.Log, w)
	if err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}
	return logger, closeFn, nil
}

func (g *globalFlags) styles(cfg config.Config) report.Styles {
	return report.NewStyles(!cfg.Log.NoColor)
}

// #endregion helpers
