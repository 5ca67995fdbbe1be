// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sqlgateway/core/cmd/flags"
)

func connectionsCmd() *cobra.Command {
	parent := &cobra.Command{
		Use:   "connections",
		Short: "Inspect the connections registered via --connection",
	}
	parent.AddCommand(connectionsListCmd())
	parent.AddCommand(connectionsShowCmd())
	return parent
}

func connectionsListCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "list",
		Short: "List every registered connection and its descriptor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, err := NewGateway(cmd.Context())
			if err != nil {
				return err
			}
			defer gw.Close()

			return printJSON(gw.Registry.List())
		},
	}

	flags.GatewayConnectionFlags(c)
	return c
}

func connectionsShowCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "show <connection-id>",
		Short: "Show a single registered connection's descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, err := NewGateway(cmd.Context())
			if err != nil {
				return err
			}
			defer gw.Close()

			desc, err := gw.Registry.Get(args[0])
			if err != nil {
				return err
			}
			return printJSON(desc)
		},
	}

	flags.GatewayConnectionFlags(c)
	return c
}
