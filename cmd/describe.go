// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sqlgateway/core/cmd/flags"
	"github.com/sqlgateway/core/pkg/schema"
)

func describeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "describe <connection-id> <table>",
		Short: "Describe a table's columns, primary key, foreign keys and indexes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			connID, table := args[0], args[1]

			gw, err := NewGateway(cmd.Context())
			if err != nil {
				return err
			}
			defer gw.Close()

			desc, err := gw.Registry.Get(connID)
			if err != nil {
				return err
			}
			if err := requireSchemaForServerLevel(desc, flags.Schema()); err != nil {
				return err
			}

			lease, err := gw.Registry.Resolve(cmd.Context(), connID, flags.Database())
			if err != nil {
				return err
			}
			defer lease.Release()

			intro, err := schema.For(desc.Backend)
			if err != nil {
				return err
			}
			described, err := intro.DescribeTable(cmd.Context(), lease.DB, flags.Schema(), table)
			if err != nil {
				return err
			}

			return printJSON(described)
		},
	}

	flags.GatewayConnectionFlags(c)
	return c
}
