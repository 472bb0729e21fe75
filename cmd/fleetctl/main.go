// Command fleetctl runs the maintenance document pipeline and roster tooling
// from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/fleet-tracker/internal/app"
	"github.com/joseph-ayodele/fleet-tracker/internal/common"
)

var (
	// Global flags
	inmem    bool
	logLevel string

	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fleetctl",
	Short: "Fleet maintenance document pipeline CLI",
	Long: `fleetctl processes maintenance receipts and invoices into vehicle
service records and manages the vehicle roster.

Configuration comes from the environment (and a .env file if present).
Use --inmem to run against a throwaway in-memory SQLite store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = common.LoadConfig()
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger = common.NewLogger(cfg.Log)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&inmem, "inmem", false, "use an in-memory SQLite database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(
		newMigrateCmd(),
		newDBHealthCmd(),
		newOCRCmd(),
		newProcessCmd(),
		newIngestDirCmd(),
		newWatchCmd(),
		newImportRosterCmd(),
		newRosterTemplateCmd(),
		newExportCmd(),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// openApp validates the configuration and wires the pipeline.
func openApp(ctx context.Context, migrate bool) (*app.App, error) {
	if !inmem {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config: %s", common.PublicMessage(err))
		}
	}
	return app.New(ctx, cfg, logger, app.Options{InMemory: inmem, Migrate: migrate})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
