package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/lift-controller/internal/db"
	"github.com/banshee-data/lift-controller/internal/waveform"
)

func newPlotCmd(g *globalFlags) *cobra.Command {
	charts := &chartFlags{}
	cmd := &cobra.Command{
		Use:   "plot <run-id>",
		Short: "Summarize a recorded run and render its floor plot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			run, err := store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			events, err := store.RunEvents(ctx, run.ID)
			if err != nil {
				return err
			}
			trace := waveform.FromRun(*run, events)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n%s\n", run.Name, run.Mode, run.ID, waveform.Summarize(trace))
			return charts.write(trace, run.ID)
		},
	}
	charts.register(cmd)
	return cmd
}

// openStore opens the configured trace database.
func (g *globalFlags) openStore() (*db.DB, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	path := cfg.GetDBPath()
	if path == "" {
		return nil, errors.New("no trace database configured")
	}
	return db.NewDB(path)
}
