// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sqlgateway/core/cmd/flags"
	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/executor"
	"github.com/sqlgateway/core/pkg/gwerrors"
	"github.com/sqlgateway/core/pkg/sqlanalyze"
)

func execCmd() *cobra.Command {
	var params, paramsSchema string

	c := &cobra.Command{
		Use:   "exec <connection-id> <sql>",
		Short: "Run a mutating statement and print rows_affected/last_insert_id",
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

			sp, _ := pterm.DefaultSpinner.WithText("Running statement...").Start()

			var result executor.ExecResult
			err = withTarget(cmd.Context(), gw, connID, func(k backend.Kind, writable bool, e execer) error {
				if !writable {
					return gwerrors.ReadOnlyConnection(connID)
				}
				var err error
				result, err = executor.RunExecute(cmd.Context(), k, e, sql, cells,
					sqlanalyze.Policy{RequireReadOnly: false, AllowDangerous: flags.AllowDangerous()})
				return err
			})
			if err != nil {
				sp.Fail(fmt.Sprintf("Statement failed: %s", err))
				return err
			}
			sp.Success("Statement applied")

			return printExecResult(result)
		},
	}

	c.Flags().StringVar(&params, "params", "", "Bound parameters as a JSON array, e.g. '[1, \"ada\"]'")
	c.Flags().StringVar(&paramsSchema, "params-schema", "", "Path to a JSON Schema file to validate --params against before binding")
	flags.GatewayConnectionFlags(c)
	flags.WritePolicyFlags(c)
	return c
}
