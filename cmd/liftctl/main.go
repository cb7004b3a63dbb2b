// Command liftctl runs the lift controller against a board, replays input
// scenarios and renders recorded traces.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/banshee-data/lift-controller/internal/config"
	"github.com/banshee-data/lift-controller/internal/floorfsm"
	"github.com/banshee-data/lift-controller/internal/monitoring"
	"github.com/banshee-data/lift-controller/internal/segdecode"
	"github.com/banshee-data/lift-controller/internal/version"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	dbPath     string

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "liftctl",
		Short:         "Lift controller board simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "board config JSON (defaults apply when empty)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "trace database path, overrides the config")

	root.AddCommand(
		newRunCmd(g),
		newReplayCmd(g),
		newPlotCmd(g),
		newMigrateCmd(g),
		newVersionCmd(),
	)
	return root
}

func (g *globalFlags) initLogger() error {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if g.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	g.logger = logger
	monitoring.SetLogger(logger.Sugar().Infof)
	return nil
}

// loadConfig reads the config file when one was given and applies the
// command-line overrides.
func (g *globalFlags) loadConfig() (*config.BoardConfig, error) {
	cfg := config.EmptyBoardConfig()
	if g.configPath != "" {
		var err error
		if cfg, err = config.LoadBoardConfig(g.configPath); err != nil {
			return nil, err
		}
	}
	if g.dbPath != "" {
		cfg.DBPath = &g.dbPath
	}
	return cfg, nil
}

// tables loads the transition and decoder tables named by cfg.
func tables(cfg *config.BoardConfig) (*floorfsm.Table, *segdecode.Table, error) {
	floors, err := floorfsm.LoadTable(cfg.GetFloorTable())
	if err != nil {
		return nil, nil, err
	}
	segments, err := segdecode.LoadTable(cfg.GetSegmentTable())
	if err != nil {
		return nil, nil, err
	}
	return floors, segments, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "liftctl:", err)
		os.Exit(1)
	}
}
