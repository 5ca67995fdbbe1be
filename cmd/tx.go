// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sqlgateway/core/cmd/flags"
	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/executor"
	"github.com/sqlgateway/core/pkg/sqlanalyze"
)

// txCmd groups the interactive-transaction operations of §4.F. Since this
// CLI is a single, short-lived process (§2.J — a debugging front-end, not
// the long-lived gateway process the wire protocol would run inside), a
// tx_id handed back by one invocation cannot be handed to a later one:
// `tx run` exercises the full begin → use → commit/rollback lifecycle
// within one process instead of splitting it across separate commands.
func txCmd() *cobra.Command {
	parent := &cobra.Command{
		Use:   "tx",
		Short: "Interactive transaction lifecycle (begin/use/commit/rollback) against one connection",
	}
	parent.AddCommand(txRunCmd())
	parent.AddCommand(txListCmd())
	return parent
}

func txRunCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "run <connection-id> <sql> [<sql> ...]",
		Short: "Begin a transaction, run each statement in order, then commit (or roll back on failure)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			connID, statements := args[0], args[1:]

			gw, err := NewGateway(cmd.Context())
			if err != nil {
				return err
			}
			defer gw.Close()

			lease, err := gw.Registry.Resolve(cmd.Context(), connID, flags.Database())
			if err != nil {
				return err
			}

			desc, err := gw.Registry.Get(connID)
			if err != nil {
				lease.Release()
				return err
			}

			tx, err := lease.DB.BeginTx(cmd.Context(), nil)
			if err != nil {
				lease.Release()
				return err
			}

			timeout := time.Duration(flags.TimeoutSeconds()) * time.Second
			txID := gw.Tx.Begin(connID, desc.Backend, tx, timeout, lease.Release)

			results := make([]interface{}, 0, len(statements))
			runErr := runTxStatements(cmd.Context(), gw, txID, desc.Backend, desc.Writable, statements, &results)

			if runErr != nil {
				_ = gw.Tx.Rollback(txID)
				return runErr
			}
			if err := gw.Tx.Commit(txID); err != nil {
				return err
			}

			return printJSON(results)
		},
	}

	c.Flags().Int("timeout", 0, "Transaction timeout in seconds, counted from begin (clamped to [1, 300], default 60)")
	viper.BindPFlag("TIMEOUT_S", c.Flags().Lookup("timeout"))

	flags.GatewayConnectionFlags(c)
	flags.WritePolicyFlags(c)
	return c
}

func runTxStatements(ctx context.Context, gw *Gateway, txID string, k backend.Kind, writable bool, statements []string, results *[]interface{}) error {
	policy := sqlanalyze.Policy{RequireReadOnly: !writable, AllowDangerous: flags.AllowDangerous()}
	for _, stmt := range statements {
		err := gw.Tx.Use(ctx, txID, func(ctx context.Context, tx *sql.Tx) error {
			res, err := executor.RunExecute(ctx, k, tx, stmt, nil, policy)
			if err != nil {
				return err
			}
			*results = append(*results, res)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func txListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open transactions (always empty: each CLI invocation has its own transaction registry)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, err := NewGateway(cmd.Context())
			if err != nil {
				return err
			}
			defer gw.Close()

			return printJSON(gw.Tx.List())
		},
	}
}
