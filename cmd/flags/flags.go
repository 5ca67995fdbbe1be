// SPDX-License-Identifier: Apache-2.0

package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Connections returns every --connection spec given on the command line
// (the persistent flag is repeatable). Only when no --connection flag is
// given are the specs taken from the SQLGATEWAY_CONNECTIONS environment
// variable instead; the two sources are not merged.
func Connections() []string {
	return viper.GetStringSlice("CONNECTIONS")
}

func Database() string {
	return viper.GetString("DATABASE")
}

func Schema() string {
	return viper.GetString("SCHEMA")
}

func TransactionID() string {
	return viper.GetString("TX_ID")
}

func AllowDangerous() bool {
	return viper.GetBool("ALLOW_DANGEROUS")
}

func RequireReadOnly() bool {
	return viper.GetBool("REQUIRE_READ_ONLY")
}

func TimeoutSeconds() int {
	return viper.GetInt("TIMEOUT_S")
}

// GatewayConnectionFlags registers the flags every data-path subcommand
// (query, exec, explain, tables, describe, databases) shares.
func GatewayConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("database", "", "Target database for a server-level connection")
	cmd.Flags().String("schema", "", "Schema to filter introspection by (required for server-level MySQL/Postgres connections)")
	cmd.Flags().String("tx", "", "Interactive transaction id to run against, instead of a fresh pool lease")

	// Bound when the command runs: viper keeps one binding per key, so
	// binding at construction would leave only the last command's flags read.
	prev := cmd.PreRunE
	cmd.PreRunE = func(c *cobra.Command, args []string) error {
		viper.BindPFlag("DATABASE", c.Flags().Lookup("database"))
		viper.BindPFlag("SCHEMA", c.Flags().Lookup("schema"))
		viper.BindPFlag("TX_ID", c.Flags().Lookup("tx"))
		if prev != nil {
			return prev(c, args)
		}
		return nil
	}
}

// WritePolicyFlags registers the flags that shape run_execute's safety
// policy (§4.B).
func WritePolicyFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("allow-dangerous", false, "Allow DROP/TRUNCATE/DELETE-without-WHERE/UPDATE-without-WHERE statements")
	prev := cmd.PreRunE
	cmd.PreRunE = func(c *cobra.Command, args []string) error {
		viper.BindPFlag("ALLOW_DANGEROUS", c.Flags().Lookup("allow-dangerous"))
		if prev != nil {
			return prev(c, args)
		}
		return nil
	}
}
