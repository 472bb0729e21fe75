package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/fleet-tracker/internal/server"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", a.DB.Dialect())
			return nil
		},
	}
}

func newDBHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dbhealth",
		Short: "Ping the database and list the vehicle roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := server.PingDB(ctx, a.DB, logger, 3*time.Second); err != nil {
				return fmt.Errorf("DB health: FAIL (%w)", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "DB health: OK")

			vs, err := a.Vehicles.ListAll(ctx)
			if err != nil {
				return fmt.Errorf("listing vehicles: %w", err)
			}
			fmt.Fprintf(out, "vehicles: %d\n", len(vs))
			for _, v := range vs {
				fmt.Fprintf(out, "- %s  %s  %s  %d mi\n", v.VIN, v.DisplayName(), v.Status, v.CurrentMileage)
			}
			return nil
		},
	}
}
