// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"

	"github.com/sqlgateway/core/cmd/flags"
	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/gwerrors"
)

// execer is satisfied by both *sql.DB and *sql.Tx; it mirrors the same
// structural contract pkg/executor's verbs accept, so either can be handed
// straight through without this package needing to import an unexported
// type.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// withTarget implements §4.D's lease resolution steps for the CLI: a
// --tx id takes precedence and ignores --database (step 1); otherwise the
// named connection is resolved directly or through the pool manager
// (steps 2-4), and the lease is released once run returns.
func withTarget(ctx context.Context, gw *Gateway, connID string, run func(k backend.Kind, writable bool, e execer) error) error {
	if txID := flags.TransactionID(); txID != "" {
		summary, ok := gw.Tx.Lookup(txID)
		if !ok {
			return gwerrors.TransactionNotFound(txID)
		}
		desc, err := gw.Registry.Get(summary.ConnID)
		if err != nil {
			return err
		}
		return gw.Tx.Use(ctx, txID, func(ctx context.Context, tx *sql.Tx) error {
			return run(desc.Backend, desc.Writable, tx)
		})
	}

	if connID == "" {
		return errNoConnectionGiven
	}

	lease, err := gw.Registry.Resolve(ctx, connID, flags.Database())
	if err != nil {
		return err
	}
	defer lease.Release()
	return run(lease.Backend, lease.Writable, lease.DB)
}
