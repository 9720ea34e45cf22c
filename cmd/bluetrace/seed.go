package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bluetrace-hq/gateway/pkg/cli"
	"bluetrace-hq/gateway/pkg/datasets"
	"bluetrace-hq/gateway/pkg/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin key and demo datasets",
	Long: `Create an enterprise admin key owned by the configured admin email and
load deterministic demo data for the DEMO001-DEMO003 stations.

The admin key is printed once. Running seed again creates nothing new
while an active admin key exists and demo rows are already present.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, keys, err := openKeyStore(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("seed", err)
	}
	defer db.Close()

	repo := datasets.NewRepository(db, cfg.Database.QueryTimeout)
	res, err := seed.New(keys, repo, cfg.Security.APIKeySalt, cfg.Admin.Email).Run(ctx)
	if err != nil {
		return cli.NewCommandError("seed", err)
	}

	out := cmd.OutOrStdout()
	if res.AdminKey != "" {
		fmt.Fprintf(out, "Admin key (%s): %s\n", cfg.Admin.Email, res.AdminKey)
		fmt.Fprintln(out, "⚠️  Save this key - it won't be shown again")
	} else {
		fmt.Fprintf(out, "Admin key already exists for %s\n", cfg.Admin.Email)
	}
	fmt.Fprintf(out, "✓ Seeded tides=%d sst=%d currents=%d turbidity=%d\n",
		res.Tides, res.SST, res.Currents, res.Turbidity)
	return nil
}
