package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	apikeyNameFlag   string
	apikeyScopesFlag []string
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Issue, list and revoke API keys",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API key",
	Long: `Issue a new API key. The raw key is printed once and cannot be recovered.
Keys expire after the period set in the schema's authorization block (30 days by default).`,
	Args: cobra.NoArgs,
	RunE: runAPIKeyCreate,
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys",
	Args:  cobra.NoArgs,
	RunE:  runAPIKeyList,
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

func init() {
	apikeyCreateCmd.Flags().StringVar(&apikeyNameFlag, "name", "", "Name of the key holder")
	apikeyCreateCmd.Flags().StringSliceVar(&apikeyScopesFlag, "scope", nil, "Scope granted to the key (repeatable)")
	_ = apikeyCreateCmd.MarkFlagRequired("name")

	apikeyCmd.AddCommand(apikeyCreateCmd)
	apikeyCmd.AddCommand(apikeyListCmd)
	apikeyCmd.AddCommand(apikeyRevokeCmd)
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	l, err := openLocal(cmd.Context())
	if err != nil {
		return err
	}
	defer l.Close()

	issued, err := l.keys.Create(cmd.Context(), apikeyNameFlag, apikeyScopesFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:      %s\n", issued.Key.ID)
	fmt.Fprintf(out, "Key:     %s\n", issued.RawKey)
	fmt.Fprintf(out, "Expires: %s\n", issued.Key.ExpiresAt.Format(time.RFC3339))
	return nil
}

func runAPIKeyList(cmd *cobra.Command, args []string) error {
	l, err := openLocal(cmd.Context())
	if err != nil {
		return err
	}
	defer l.Close()

	keys, err := l.keys.List(cmd.Context())
	if err != nil {
		return err
	}

	now := time.Now()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPREFIX\tSCOPES\tEXPIRES\tSTATUS")
	for _, k := range keys {
		state := "active"
		switch {
		case k.IsRevoked():
			state = "revoked"
		case k.IsExpired(now):
			state = "expired"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			k.ID, k.Name, k.Prefix, strings.Join(k.Scopes, ","), k.ExpiresAt.Format(time.RFC3339), state)
	}
	return w.Flush()
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	l, err := openLocal(cmd.Context())
	if err != nil {
		return err
	}
	defer l.Close()

	if err := l.keys.Revoke(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Revoked %s\n", args[0])
	return nil
}
