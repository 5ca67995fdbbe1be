// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sqlgateway/core/cmd/flags"
	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/gwerrors"
	"github.com/sqlgateway/core/pkg/registry"
	"github.com/sqlgateway/core/pkg/schema"
)

// requireSchemaForServerLevel enforces §4.C's rule that server-level MySQL
// and Postgres connections must be given an explicit schema for
// introspection; SQLite has no server scope to disambiguate.
func requireSchemaForServerLevel(desc registry.Descriptor, requestedSchema string) error {
	if desc.ServerLevel && requestedSchema == "" && desc.Backend != backend.SQLite {
		return gwerrors.DatabaseRequired()
	}
	return nil
}

func tablesCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "tables <connection-id>",
		Short: "List tables and views visible to a connection",
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
			tables, err := intro.ListTables(cmd.Context(), lease.DB, flags.Schema())
			if err != nil {
				return err
			}

			return printJSON(tables)
		},
	}

	flags.GatewayConnectionFlags(c)
	return c
}
