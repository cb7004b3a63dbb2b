package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/lift-controller/internal/db"
)

func newMigrateCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the trace database schema",
	}

	// open skips the automatic migration NewDB performs.
	open := func() (*db.DB, error) {
		cfg, err := g.loadConfig()
		if err != nil {
			return nil, err
		}
		path := cfg.GetDBPath()
		if path == "" {
			return nil, errors.New("no trace database configured")
		}
		return db.OpenDB(path)
	}

	status := func(cmd *cobra.Command, store *db.DB) error {
		v, dirty, err := store.MigrateVersion()
		if err != nil {
			return err
		}
		latest, err := db.LatestMigrationVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d of %d", v, latest)
		if dirty {
			fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	}

	withStore := func(fn func(cmd *cobra.Command, store *db.DB, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := fn(cmd, store, args); err != nil {
				return err
			}
			return status(cmd, store)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withStore(func(_ *cobra.Command, store *db.DB, _ []string) error {
				return store.MigrateUp()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: withStore(func(_ *cobra.Command, store *db.DB, _ []string) error {
				return store.MigrateDown()
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: withStore(func(*cobra.Command, *db.DB, []string) error {
				return nil
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Record a schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(func(_ *cobra.Command, store *db.DB, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return store.MigrateForce(v)
			}),
		},
	)
	return cmd
}
