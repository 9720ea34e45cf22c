package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"bluetrace-hq/gateway/pkg/cli"
	"bluetrace-hq/gateway/pkg/config"
	"bluetrace-hq/gateway/pkg/datasets"
	"bluetrace-hq/gateway/pkg/ingest"
)

var ingestFlags struct {
	list   bool
	format string
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [job...]",
	Short: "Run dataset ingestion jobs",
	Long: `Fetch, transform and store dataset records. With no arguments every
registered job runs; a failing job does not stop the others.

Jobs:
  tides_noaa      water levels from NOAA CO-OPS for the configured stations
  turbidity_demo  deterministic demo turbidity grid

Examples:
  bluetrace ingest
  bluetrace ingest tides_noaa
  bluetrace ingest --list`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(&ingestFlags.list, "list", false, "list job names and exit")
	ingestCmd.Flags().StringVar(&ingestFlags.format, "format", "text", "output format: text, json")
}

// newRegistry registers every ingestion job against repo.
func newRegistry(cfg *config.Config, repo *datasets.Repository) *ingest.Registry {
	client := ingest.NewClient(cfg.Ingest.HTTPTimeout, ingest.RetryPolicyFrom(cfg.Ingest))
	return ingest.NewRegistry(
		ingest.AsJob(ingest.NewTidesNOAA(client, repo, cfg.Ingest)),
		ingest.AsJob(ingest.NewTurbidityDemo(repo)),
	)
}

type ingestResults []ingest.Result

func (r ingestResults) Table() cli.Table {
	t := cli.Table{Headers: []string{"JOB", "TRANSFORMED", "INSERTED", "DURATION"}}
	for _, res := range r {
		t.Rows = append(t.Rows, []string{
			res.Name,
			strconv.Itoa(res.Transformed),
			strconv.FormatInt(res.Inserted, 10),
			res.Duration.Round(time.Millisecond).String(),
		})
	}
	return t
}

func runIngest(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(ingestFlags.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("ingest", err)
	}
	defer db.Close()

	registry := newRegistry(cfg, datasets.NewRepository(db, cfg.Database.QueryTimeout))
	if ingestFlags.list {
		for _, name := range registry.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}

	results, runErr := registry.Run(ctx, args...)
	if len(results) > 0 {
		if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), ingestResults(results)); err != nil {
			return err
		}
	}
	if runErr != nil {
		return cli.NewCommandError("ingest", runErr)
	}
	return nil
}
