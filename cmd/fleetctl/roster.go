package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/fleet-tracker/internal/roster"
)

func newImportRosterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-roster <xlsx>",
		Short: "Create or update vehicles from a roster workbook",
		Long: `Reads the "Vehicles" sheet (see roster-template) and upserts every row by
VIN. Rows with errors are reported and skipped; mileage never decreases.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Importer.Import(ctx, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created: %d\nupdated: %d\n", res.Created, res.Updated)
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			for _, e := range res.Errors {
				fmt.Fprintf(out, "error: %s\n", e)
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("%d rows were not imported", len(res.Errors))
			}
			return nil
		},
	}
}

func newRosterTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roster-template <out.xlsx>",
		Short: "Write a blank roster workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := roster.WriteTemplate(f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "template written to %s\n", args[0])
			return nil
		},
	}
}
