package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"bluetrace-hq/gateway/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the config file with defaults, the env file and BLUETRACE_*
overrides applied, validate it and print the effective plan limits.

Exits with status 2 when the configuration is invalid.

Examples:
  bluetrace validate
  bluetrace validate --config /etc/bluetrace/config.yaml`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	source := configPath()
	if source == "" {
		source = "defaults and environment"
	}
	fmt.Fprintf(out, "✓ Configuration valid (%s)\n", source)
	fmt.Fprintf(out, "  listen:     %s\n", cfg.Server.ListenAddress)
	fmt.Fprintf(out, "  database:   %s\n", cfg.Database.Driver)
	fmt.Fprintf(out, "  rate limit: %s backend, fail %s\n", cfg.RateLimits.Backend, failPolicy(cfg))

	plans := make([]string, 0, len(cfg.RateLimits.Plans))
	for plan := range cfg.RateLimits.Plans {
		plans = append(plans, plan)
	}
	sort.Strings(plans)
	limits := make([]string, 0, len(plans))
	for _, plan := range plans {
		l := cfg.RateLimits.Plans[plan]
		limits = append(limits, fmt.Sprintf("%s=%d/%ds", plan, l.Requests, l.Window))
	}
	fmt.Fprintf(out, "  plans:      %s\n", strings.Join(limits, " "))
	return nil
}

func failPolicy(cfg *config.Config) string {
	if cfg.RateLimits.FailOpen() {
		return config.FailurePolicyOpen
	}
	return config.FailurePolicyClosed
}
