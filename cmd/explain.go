// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sqlgateway/core/cmd/flags"
	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/executor"
	"github.com/sqlgateway/core/pkg/sqlanalyze"
)

func explainCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "explain <connection-id> <sql>",
		Short: "Print the backend's execution plan for a statement",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			connID, sql := args[0], args[1]

			gw, err := NewGateway(cmd.Context())
			if err != nil {
				return err
			}
			defer gw.Close()

			var result executor.Result
			err = withTarget(cmd.Context(), gw, connID, func(k backend.Kind, writable bool, e execer) error {
				policy := sqlanalyze.Policy{RequireReadOnly: !writable, AllowDangerous: flags.AllowDangerous()}
				var err error
				result, err = executor.RunExplain(cmd.Context(), k, e, sql, policy)
				return err
			})
			if err != nil {
				return err
			}

			return printResult(result)
		},
	}

	flags.GatewayConnectionFlags(c)
	flags.WritePolicyFlags(c)
	return c
}
