package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dimalipin/netviz/core"
	"github.com/dimalipin/netviz/internal/config"
	"github.com/dimalipin/netviz/internal/logging"
	"github.com/dimalipin/netviz/internal/sim/state"
	"github.com/dimalipin/netviz/kb"
)

// app carries what every subcommand shares once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	log        logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "netviz",
		Short: "netviz - packet routing and IPv4 header visualizations",
		Long: `netviz simulates a packet crossing two subnets joined by gateways and a
WAN link, and explains the fields of an IPv4 header.

It serves the browser visualizations over HTTP and gRPC, or runs the
simulation headless from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logCfg := cfg.LoggingConfig()
			logCfg.Output = cmd.ErrOrStderr()
			a.log = logging.New(logCfg)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file path (YAML)")

	root.AddCommand(
		newServeCmd(a),
		newRunCmd(a),
		newInspectCmd(a),
		newTopologyCmd(a),
	)
	return root
}

// loadTopology builds the knowledge base from the configured topology file,
// or the default two-subnet layout.
func (a *app) loadTopology() (*kb.KnowledgeBase, *core.ScenarioSummary, error) {
	store, summary, err := core.LoadTopologyFile(a.cfg.Simulation.TopologyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("topology: %w", err)
	}
	return store, summary, nil
}

// newSimulation builds a simulation over store from the configuration.
// seed overrides the configured seed when non-zero.
func (a *app) newSimulation(store *kb.KnowledgeBase, seed int64, opts ...state.Option) *state.Simulation {
	if seed == 0 {
		seed = a.cfg.Simulation.Seed
	}
	base := []state.Option{
		state.WithParams(a.cfg.SimParams()),
		state.WithInitialTTL(a.cfg.Simulation.InitialTTL),
		state.WithTimeline(state.NewTimeline(a.cfg.Simulation.TimelineRuns)),
		state.WithLogger(a.log),
	}
	if seed != 0 {
		base = append(base, state.WithSeed(seed))
	}
	return state.NewSimulation(store, append(base, opts...)...)
}
