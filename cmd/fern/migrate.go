package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/database"
)

func newMigrateCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the contact schema migrations",
		Long:  "Apply the embedded migrations for the configured driver up to DB_MIGRATION_VERSION (latest when 0).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := cc.config, cc.logger

			conn, err := database.Open(cmd.Context(), cfg.Database(), logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			a := &app{cfg: cfg, logger: logger}
			if err := a.migrator().Migrate(conn.SQL(), conn.DriverName()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s database\n", cfg.DatabaseDriver)
			return nil
		},
	}
}
