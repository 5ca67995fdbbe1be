// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sqlgateway/core/cmd/flags"
	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/executor"
	"github.com/sqlgateway/core/pkg/sqlanalyze"
)

func queryCmd() *cobra.Command {
	var params, paramsSchema string

	c := &cobra.Command{
		Use:   "query <connection-id> <sql>",
		Short: "Run a read-only query and print its rows as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			connID, sql := args[0], args[1]

			if params != "" {
				if err := validateParamsAgainstSchema(paramsSchema, params); err != nil {
					return err
				}
			}

			cells, err := parseParams(params)
			if err != nil {
				return err
			}

			gw, err := NewGateway(cmd.Context())
			if err != nil {
				return err
			}
			defer gw.Close()

			var result executor.Result
			err = withTarget(cmd.Context(), gw, connID, func(k backend.Kind, writable bool, e execer) error {
				var err error
				result, err = executor.RunQuery(cmd.Context(), k, e, sql, cells, sqlanalyze.Policy{RequireReadOnly: true})
				return err
			})
			if err != nil {
				return err
			}

			return printResult(result)
		},
	}

	c.Flags().StringVar(&params, "params", "", "Bound parameters as a JSON array, e.g. '[1, \"ada\"]'")
	c.Flags().StringVar(&paramsSchema, "params-schema", "", "Path to a JSON Schema file to validate --params against before binding")
	flags.GatewayConnectionFlags(c)
	return c
}
