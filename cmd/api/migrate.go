package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lgcms/internal/config"
	"lgcms/internal/database"
	"lgcms/internal/log"
)

func newMigrateCommand(load func() (*config.AppConfig, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
	}

	withMigrator := func(fn func(*database.Migrator) error) error {
		cfg, err := load()
		if err != nil {
			return err
		}
		m, err := database.NewMigrator(cfg.Postgres.DSN, log.New(cfg.Environment, cfg.LogLevel))
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(m)
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error { return m.Down(steps) })
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator((*database.Migrator).Up)
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(m *database.Migrator) error {
					version, dirty, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", version, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}
