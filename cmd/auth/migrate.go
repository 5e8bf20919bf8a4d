package main

import (
	"github.com/aussiebroadwan/congregation/internal/auth/app"
	"github.com/aussiebroadwan/congregation/internal/auth/store/drivers/sqlite"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewMigrateCmd groups schema commands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE:  runMigrateVersion,
	})

	return cmd
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig(envFile)
	if err != nil {
		return err
	}

	// OpenStore applies migrations before returning.
	db, err := app.OpenStore(cmd.Context(), cfg, app.NewLogger(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	version, _, err := db.MigrationVersion()
	if err != nil {
		return oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	cmd.Printf("Migrations applied, schema at version %d\n", version)
	return nil
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig(envFile)
	if err != nil {
		return err
	}

	// Read-only: do not migrate as a side effect.
	db, err := sqlite.NewStore(cfg.DatabaseFile)
	if err != nil {
		return oops.Code("DB_OPEN_FAILED").With("path", cfg.DatabaseFile).Wrap(err)
	}
	defer db.Close()

	version, dirty, err := db.MigrationVersion()
	if err != nil {
		return oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	cmd.Printf("version=%d dirty=%t\n", version, dirty)
	return nil
}
