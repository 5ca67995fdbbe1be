// SPDX-License-Identifier: Apache-2.0

// Package executor is the thin polymorphic dispatch layer of §4.G: three
// verbs (run_query, run_execute, run_explain) that each classify, enforce,
// bind, dispatch and decode against either a pool lease's *sql.DB or a
// transaction's *sql.Tx.
package executor

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/gwerrors"
	"github.com/sqlgateway/core/pkg/sqlanalyze"
	"github.com/sqlgateway/core/pkg/values"
)

// execer is satisfied by both *sql.DB and *sql.Tx, letting every verb run
// identically over a pool lease or an interactive transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Column is one result column's name and backend-declared type string.
type Column struct {
	Name         string
	DeclaredType string
}

// Result is the normalized shape of run_query and run_explain (§3).
type Result struct {
	Columns []Column
	Rows    [][]values.Cell
}

// ExecResult is the normalized shape of run_execute (§3).
type ExecResult struct {
	RowsAffected int64
	LastInsertID *int64
}

// RunQuery executes sql as a read path and decodes every row (§4.G).
func RunQuery(ctx context.Context, k backend.Kind, e execer, sql string, params []values.Cell, policy sqlanalyze.Policy) (Result, error) {
	if err := classifyAndEnforce(k, sql, policy); err != nil {
		return Result{}, err
	}

	if err := values.CheckPlaceholders(sql, k.Placeholders(), len(params)); err != nil {
		return Result{}, err
	}

	args, err := values.BindAll(params)
	if err != nil {
		return Result{}, err
	}

	rows, err := withLockRetry(ctx, k, func() (*sql.Rows, error) {
		return e.QueryContext(ctx, sql, args...)
	})
	if err != nil {
		return Result{}, gwerrors.Driver(string(k), err)
	}
	defer rows.Close()

	return decodeRows(k, rows)
}

// RunExecute runs a mutating statement and reports rows_affected plus,
// where the backend supports it, last_insert_id (§4.G).
func RunExecute(ctx context.Context, k backend.Kind, e execer, sqlText string, params []values.Cell, policy sqlanalyze.Policy) (ExecResult, error) {
	if err := classifyAndEnforce(k, sqlText, policy); err != nil {
		return ExecResult{}, err
	}

	if err := values.CheckPlaceholders(sqlText, k.Placeholders(), len(params)); err != nil {
		return ExecResult{}, err
	}

	args, err := values.BindAll(params)
	if err != nil {
		return ExecResult{}, err
	}

	if k == backend.Postgres && hasReturning(sqlText) {
		return runExecuteWithReturning(ctx, k, e, sqlText, args)
	}

	res, err := withLockRetryResult(ctx, k, func() (sql.Result, error) {
		return e.ExecContext(ctx, sqlText, args...)
	})
	if err != nil {
		return ExecResult{}, gwerrors.Driver(string(k), err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return ExecResult{}, gwerrors.Driver(string(k), err)
	}

	out := ExecResult{RowsAffected: affected}
	if k == backend.MySQL || k == backend.SQLite {
		if id, err := res.LastInsertId(); err == nil {
			out.LastInsertID = &id
		}
	}
	return out, nil
}

// runExecuteWithReturning handles Postgres's only path to last_insert_id: a
// statement with a RETURNING clause. The clause is run as a query so its
// output rows can be inspected; last_insert_id is populated only when it
// yields exactly one scalar column (§4.G).
func runExecuteWithReturning(ctx context.Context, k backend.Kind, e execer, sqlText string, args []interface{}) (ExecResult, error) {
	rows, err := withLockRetry(ctx, k, func() (*sql.Rows, error) {
		return e.QueryContext(ctx, sqlText, args...)
	})
	if err != nil {
		return ExecResult{}, gwerrors.Driver(string(k), err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return ExecResult{}, gwerrors.Driver(string(k), err)
	}

	var affected int64
	var lastID *int64
	for rows.Next() {
		affected++
		dest := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return ExecResult{}, gwerrors.Driver(string(k), err)
		}
		if len(cols) == 1 {
			if cell, err := values.Decode(values.CategoryInteger, 0, dest[0]); err == nil {
				id := cell.Int64
				lastID = &id
			}
		}
	}
	if err := rows.Err(); err != nil {
		return ExecResult{}, gwerrors.Driver(string(k), err)
	}
	return ExecResult{RowsAffected: affected, LastInsertID: lastID}, nil
}

// hasReturning reports whether sqlText contains the text RETURNING anywhere
// (case-insensitive), including inside literals, comments or identifiers.
// This only steers dispatch (query vs. exec) to recover
// last_insert_id, never the read-only/danger verdict, which always comes
// from sqlanalyze's AST classification.
func hasReturning(sqlText string) bool {
	return strings.Contains(strings.ToUpper(sqlText), "RETURNING")
}

// RunExplain runs sqlText's execution plan instead of the statement itself
// (§4.G). The explained statement is still classified and enforced against
// policy, since the plan output can reveal schema/data a read-only caller
// should not see for a statement it wasn't allowed to run.
func RunExplain(ctx context.Context, k backend.Kind, e execer, sqlText string, policy sqlanalyze.Policy) (Result, error) {
	class, err := sqlanalyze.Classify(k, sqlText)
	if err != nil {
		return Result{}, err
	}
	if err := sqlanalyze.Enforce(class, policy); err != nil {
		return Result{}, err
	}

	explainSQL := wrapExplain(k, class.Statement, sqlText)

	rows, err := withLockRetry(ctx, k, func() (*sql.Rows, error) {
		return e.QueryContext(ctx, explainSQL)
	})
	if err != nil {
		return Result{}, gwerrors.Driver(string(k), err)
	}
	defer rows.Close()

	return decodeRows(k, rows)
}

func wrapExplain(k backend.Kind, stmt sqlanalyze.StatementKind, sqlText string) string {
	if k == backend.SQLite && stmt == sqlanalyze.StatementSelect {
		return "EXPLAIN QUERY PLAN " + sqlText
	}
	return "EXPLAIN " + sqlText
}

func classifyAndEnforce(k backend.Kind, sqlText string, policy sqlanalyze.Policy) error {
	class, err := sqlanalyze.Classify(k, sqlText)
	if err != nil {
		return err
	}
	return sqlanalyze.Enforce(class, policy)
}

// decodeRows drains rows into the neutral Result shape, dispatching each
// column's decode on the backend's own column category (§4.A).
func decodeRows(k backend.Kind, rows *sql.Rows) (Result, error) {
	cts, err := rows.ColumnTypes()
	if err != nil {
		return Result{}, gwerrors.Driver(string(k), err)
	}

	cols := make([]Column, len(cts))
	cats := make([]values.Category, len(cts))
	temporals := make([]values.TemporalKind, len(cts))
	for i, ct := range cts {
		cols[i] = Column{Name: ct.Name(), DeclaredType: ct.DatabaseTypeName()}
		cats[i], temporals[i] = k.ColumnCategory(ct)
	}

	var outRows [][]values.Cell
	for rows.Next() {
		raw := make([]interface{}, len(cts))
		ptrs := make([]interface{}, len(cts))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, gwerrors.Driver(string(k), err)
		}

		rowCells := make([]values.Cell, len(cts))
		for i, v := range raw {
			cell, err := values.Decode(cats[i], temporals[i], v)
			if err != nil {
				return Result{}, gwerrors.Driver(string(k), err)
			}
			rowCells[i] = cell
		}
		outRows = append(outRows, rowCells)
	}
	if err := rows.Err(); err != nil {
		return Result{}, gwerrors.Driver(string(k), err)
	}

	return Result{Columns: cols, Rows: outRows}, nil
}
