package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/infrastructure/config"
	infraPG "github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/infrastructure/postgres"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the payment schema",
		Long: `Apply or roll back the payment schema.

The database is configured through the same DB_* variables as paymentd.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := infraPG.MigrateUp(dsn()); err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	var confirm bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all payment data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return fmt.Errorf("refusing to drop the schema without --yes")
			}
			if err := infraPG.MigrateDown(dsn()); err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
			return nil
		},
	}
	down.Flags().BoolVar(&confirm, "yes", false, "confirm dropping the schema")
	cmd.AddCommand(down)
	return cmd
}

func dsn() string {
	return config.Load().DB.Postgres().DSN()
}
