// SPDX-License-Identifier: Apache-2.0

// Package pganalyze is the Postgres dialect of the SQL safety analyzer
// (§4.B). It classifies statements from the same AST pg_query_go builds for
// Postgres itself, grounded on the parse-then-switch pattern in
// pkg/sql2pgroll/convert.go.
package pganalyze

import (
	"fmt"

	pgq "github.com/pganalyze/pg_query_go/v6"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/sqlanalyze"
)

func init() {
	sqlanalyze.Register(backend.Postgres, analyzer{})
}

type analyzer struct{}

func (analyzer) Classify(sql string) (sqlanalyze.Classification, error) {
	tree, err := pgq.Parse(sql)
	if err != nil {
		return sqlanalyze.Classification{}, err
	}

	out := sqlanalyze.Classification{IsReadOnly: true, Danger: map[sqlanalyze.DangerKind]bool{}, Statement: sqlanalyze.StatementOther}
	stmts := tree.GetStmts()
	if len(stmts) == 0 {
		return out, fmt.Errorf("pganalyze: empty statement")
	}

	for _, rawStmt := range stmts {
		c, err := classifyNode(rawStmt.GetStmt())
		if err != nil {
			return sqlanalyze.Classification{}, err
		}
		out.IsReadOnly = out.IsReadOnly && c.IsReadOnly
		for k, v := range c.Danger {
			if v {
				out.Danger[k] = true
			}
		}
		if out.Statement == sqlanalyze.StatementOther {
			out.Statement = c.Statement
		}
	}
	return out, nil
}

func classifyNode(node *pgq.Node) (sqlanalyze.Classification, error) {
	switch n := node.GetNode().(type) {
	case *pgq.Node_SelectStmt:
		return readOnly(sqlanalyze.StatementSelect), nil

	case *pgq.Node_VariableShowStmt:
		return readOnly(sqlanalyze.StatementShow), nil

	case *pgq.Node_ExplainStmt:
		return readOnly(sqlanalyze.StatementExplain), nil

	case *pgq.Node_TransactionStmt:
		return readOnly(sqlanalyze.StatementTCL), nil

	case *pgq.Node_VariableSetStmt:
		return readOnly(sqlanalyze.StatementOther), nil

	case *pgq.Node_InsertStmt:
		return writeOnly(sqlanalyze.StatementInsert), nil

	case *pgq.Node_UpdateStmt:
		c := writeOnly(sqlanalyze.StatementUpdate)
		if n.UpdateStmt.GetWhereClause() == nil {
			c.Danger[sqlanalyze.UpdateNoWhere] = true
		}
		return c, nil

	case *pgq.Node_DeleteStmt:
		c := writeOnly(sqlanalyze.StatementDelete)
		if n.DeleteStmt.GetWhereClause() == nil {
			c.Danger[sqlanalyze.DeleteNoWhere] = true
		}
		return c, nil

	case *pgq.Node_TruncateStmt:
		c := writeOnly(sqlanalyze.StatementDDL)
		c.Danger[sqlanalyze.Truncate] = true
		return c, nil

	case *pgq.Node_DropdbStmt:
		c := writeOnly(sqlanalyze.StatementDDL)
		c.Danger[sqlanalyze.DropDatabase] = true
		return c, nil

	case *pgq.Node_DropStmt:
		c := writeOnly(sqlanalyze.StatementDDL)
		switch n.DropStmt.GetRemoveType() {
		case pgq.ObjectType_OBJECT_TABLE:
			c.Danger[sqlanalyze.DropTable] = true
		case pgq.ObjectType_OBJECT_INDEX:
			c.Danger[sqlanalyze.DropIndex] = true
		case pgq.ObjectType_OBJECT_SCHEMA, pgq.ObjectType_OBJECT_DATABASE:
			c.Danger[sqlanalyze.DropDatabase] = true
		}
		return c, nil

	case *pgq.Node_AlterTableStmt:
		c := writeOnly(sqlanalyze.StatementDDL)
		for _, cmdNode := range n.AlterTableStmt.GetCmds() {
			cmd := cmdNode.GetAlterTableCmd()
			if cmd != nil && cmd.GetSubtype() == pgq.AlterTableType_AT_DropColumn {
				c.Danger[sqlanalyze.AlterDropColumn] = true
			}
		}
		return c, nil

	default:
		// Every other DDL/utility statement (CREATE, GRANT, COMMENT, ...) is
		// a write from the gateway's point of view, but carries none of the
		// closed danger kinds.
		return writeOnly(sqlanalyze.StatementDDL), nil
	}
}

func readOnly(kind sqlanalyze.StatementKind) sqlanalyze.Classification {
	return sqlanalyze.Classification{IsReadOnly: true, Danger: map[sqlanalyze.DangerKind]bool{}, Statement: kind}
}

func writeOnly(kind sqlanalyze.StatementKind) sqlanalyze.Classification {
	return sqlanalyze.Classification{IsReadOnly: false, Danger: map[sqlanalyze.DangerKind]bool{}, Statement: kind}
}
