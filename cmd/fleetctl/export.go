package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/fleet-tracker/internal/utils"
)

func newExportCmd() *cobra.Command {
	var outPath, fromStr, toStr, vehicle string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export maintenance history to XLSX",
		Long: `Export writes maintenance records to a workbook. With only --from the
window runs through today; with only --to it starts at the first record.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return errors.New("--out is required")
			}
			from, err := utils.ParseOptionalYMD(fromStr)
			if err != nil {
				return fmt.Errorf("invalid --from date format, use YYYY-MM-DD: %w", err)
			}
			to, err := utils.ParseOptionalYMD(toStr)
			if err != nil {
				return fmt.Errorf("invalid --to date format, use YYYY-MM-DD: %w", err)
			}
			var vid *uuid.UUID
			if vehicle != "" {
				id, err := uuid.Parse(vehicle)
				if err != nil {
					return fmt.Errorf("--vehicle must be a UUID: %w", err)
				}
				vid = &id
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			xlsx, err := a.Exporter.ExportMaintenanceXLSX(ctx, vid, from, to)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if err := os.WriteFile(outPath, xlsx, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", outPath, len(xlsx))
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output XLSX path")
	cmd.Flags().StringVar(&fromStr, "from", "", "from date YYYY-MM-DD")
	cmd.Flags().StringVar(&toStr, "to", "", "to date YYYY-MM-DD")
	cmd.Flags().StringVar(&vehicle, "vehicle", "", "limit to one vehicle ID")
	return cmd
}
