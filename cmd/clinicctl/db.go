package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicbook/internal/config"
	"github.com/clinicbook/internal/db"
)

func newDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the schema in DATABASE_URL if it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			conn, err := db.Init(cmd.Context(), cfg.DatabaseURL, cfg.RequireTLS)
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	})
	return cmd
}
