package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bluetrace-hq/gateway/pkg/cli"
	"bluetrace-hq/gateway/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Create every table and index the gateway uses. The statements are
idempotent, so running migrate against an up-to-date database is a no-op.

Examples:
  bluetrace migrate
  BLUETRACE_DATABASE_DRIVER=postgres BLUETRACE_DATABASE_DSN=postgres://... bluetrace migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return cli.NewCommandError("migrate", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return cli.NewCommandError("migrate", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Schema up to date (%s)\n", db.Dialect())
	return nil
}
