package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"bluetrace-hq/gateway/pkg/api/handlers"
	"bluetrace-hq/gateway/pkg/cli"
	"bluetrace-hq/gateway/pkg/keystore"
	"bluetrace-hq/gateway/pkg/security/auth"
)

var keysFlags struct {
	name   string
	email  string
	plan   string
	format string
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
	Long: `Create, list, revoke and link API keys directly against the database.

Subcommands:
  create  - Issue a new key and print its plaintext once
  list    - List every key with plan and status
  revoke  - Revoke a key by id
  link    - Link a key to a billing customer id

Examples:
  bluetrace keys create --name "Research" --email ops@example.com --plan pro
  bluetrace keys list --format json
  bluetrace keys revoke 42
  bluetrace keys link 42 cus_123`,
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API key",
	Args:  cobra.NoArgs,
	RunE:  createKey,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys",
	Args:  cobra.NoArgs,
	RunE:  listKeys,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  revokeKey,
}

var keysLinkCmd = &cobra.Command{
	Use:   "link <id> <customer_id>",
	Short: "Link an API key to a billing customer",
	Long: `Record the billing customer that owns a key. Subscription webhooks for
that customer then move the key between plans.`,
	Args: cobra.ExactArgs(2),
	RunE: linkKey,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCreateCmd, keysListCmd, keysRevokeCmd, keysLinkCmd)

	keysCreateCmd.Flags().StringVar(&keysFlags.name, "name", "", "key name (required)")
	keysCreateCmd.Flags().StringVar(&keysFlags.email, "email", "", "owner email (required)")
	keysCreateCmd.Flags().StringVar(&keysFlags.plan, "plan", string(keystore.PlanFree), "plan: free, pro, enterprise")
	keysListCmd.Flags().StringVar(&keysFlags.format, "format", "text", "output format: text, json")
}

type keyList []handlers.KeySummary

func (k keyList) Table() cli.Table {
	t := cli.Table{Headers: []string{"ID", "NAME", "PREFIX", "OWNER", "PLAN", "CUSTOMER", "STATUS", "CREATED"}}
	for _, key := range k {
		status := "active"
		if key.RevokedAt != nil {
			status = "revoked"
		}
		customer := key.StripeCustomerID
		if customer == "" {
			customer = "-"
		}
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(key.ID, 10),
			key.Name,
			key.Prefix,
			key.OwnerEmail,
			key.Plan,
			customer,
			status,
			key.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return t
}

func createKey(cmd *cobra.Command, args []string) error {
	if keysFlags.name == "" || keysFlags.email == "" {
		return errors.New("--name and --email are required")
	}
	plan, err := keystore.ParsePlan(keysFlags.plan)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	db, keys, err := openKeyStore(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("keys create", err)
	}
	defer db.Close()

	gen, err := auth.GenerateKey(cfg.Security.APIKeySalt)
	if err != nil {
		return cli.NewCommandError("keys create", err)
	}
	key := &keystore.APIKey{
		Name:       keysFlags.name,
		KeyHash:    gen.Hash,
		Prefix:     gen.Prefix,
		OwnerEmail: keysFlags.email,
		Plan:       plan,
	}
	if err := keys.Create(ctx, key); err != nil {
		return cli.NewCommandError("keys create", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:     %d\n", key.ID)
	fmt.Fprintf(out, "Prefix: %s\n", key.Prefix)
	fmt.Fprintf(out, "Plan:   %s\n", key.Plan)
	fmt.Fprintf(out, "Key:    %s\n", gen.Plaintext)
	fmt.Fprintln(out)
	fmt.Fprintln(out, handlers.KeyCreatedMessage)
	return nil
}

func listKeys(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(keysFlags.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	db, keys, err := openKeyStore(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("keys list", err)
	}
	defer db.Close()

	all, err := keys.List(ctx)
	if err != nil {
		return cli.NewCommandError("keys list", err)
	}
	list := make(keyList, 0, len(all))
	for _, k := range all {
		list = append(list, handlers.Summarize(k))
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), list)
}

func revokeKey(cmd *cobra.Command, args []string) error {
	id, err := parseKeyID(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	db, keys, err := openKeyStore(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("keys revoke", err)
	}
	defer db.Close()

	if err := keys.Revoke(ctx, id); err != nil {
		return cli.NewCommandError("keys revoke", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Key %d revoked\n", id)
	return nil
}

func linkKey(cmd *cobra.Command, args []string) error {
	id, err := parseKeyID(args[0])
	if err != nil {
		return err
	}
	customerID := args[1]
	if customerID == "" {
		return errors.New("customer id must not be empty")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	db, keys, err := openKeyStore(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("keys link", err)
	}
	defer db.Close()

	if err := keys.SetCustomerID(ctx, id, customerID); err != nil {
		return cli.NewCommandError("keys link", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Key %d linked to %s\n", id, customerID)
	return nil
}

func parseKeyID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid key id %q", s)
	}
	return id, nil
}
