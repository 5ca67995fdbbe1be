// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sqlgateway/core/cmd/flags"
	"github.com/sqlgateway/core/pkg/schema"
)

func databasesCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "databases <connection-id>",
		Short: "List databases visible to a server-level connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			connID := args[0]

			gw, err := NewGateway(cmd.Context())
			if err != nil {
				return err
			}
			defer gw.Close()

			desc, err := gw.Registry.Get(connID)
			if err != nil {
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
			dbs, err := intro.ListDatabases(cmd.Context(), lease.DB)
			if err != nil {
				return err
			}

			return printJSON(dbs)
		},
	}

	flags.GatewayConnectionFlags(c)
	return c
}
