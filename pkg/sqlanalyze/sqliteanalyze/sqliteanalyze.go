// SPDX-License-Identifier: Apache-2.0

// Package sqliteanalyze is the SQLite dialect of the SQL safety analyzer
// (§4.B), built on machparse, a dialect-neutral SQL parser. machparse's
// grammar does not model SQLite's PRAGMA statement (it is not part of the
// standard-SQL-plus-vendor-extensions surface the parser targets), so
// PRAGMA is recognized ahead of the parser by its leading keyword; every
// other statement is classified from the parser's own AST node types, the
// same parse-then-switch pattern pganalyze and mysqlanalyze use for their
// own dialects.
package sqliteanalyze

import (
	"fmt"
	"strings"

	"github.com/freeeve/machparse"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/sqlanalyze"
)

func init() {
	sqlanalyze.Register(backend.SQLite, analyzer{})
}

type analyzer struct{}

func (analyzer) Classify(sql string) (sqlanalyze.Classification, error) {
	stmts := splitStatements(sql)
	if len(stmts) == 0 {
		return sqlanalyze.Classification{}, fmt.Errorf("sqliteanalyze: empty statement")
	}

	out := sqlanalyze.Classification{IsReadOnly: true, Danger: map[sqlanalyze.DangerKind]bool{}, Statement: sqlanalyze.StatementOther}
	for _, s := range stmts {
		c, err := classifyOne(s)
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

func classifyOne(stmt string) (sqlanalyze.Classification, error) {
	if isPragma(stmt) {
		return readOnly(sqlanalyze.StatementPragma), nil
	}

	node, err := machparse.Parse(stmt)
	if err != nil {
		return sqlanalyze.Classification{}, err
	}
	return classifyNode(node)
}

func classifyNode(node machparse.Node) (sqlanalyze.Classification, error) {
	switch s := node.(type) {
	case *machparse.SelectStatement, *machparse.WithStatement, *machparse.UnionStatement:
		return readOnly(sqlanalyze.StatementSelect), nil

	case *machparse.ExplainStatement:
		return readOnly(sqlanalyze.StatementExplain), nil

	case *machparse.BeginStatement, *machparse.CommitStatement, *machparse.RollbackStatement,
		*machparse.SavepointStatement, *machparse.ReleaseStatement:
		return readOnly(sqlanalyze.StatementTCL), nil

	case *machparse.InsertStatement, *machparse.ReplaceStatement:
		return writeOnly(sqlanalyze.StatementInsert), nil

	case *machparse.UpdateStatement:
		c := writeOnly(sqlanalyze.StatementUpdate)
		if s.Where == nil {
			c.Danger[sqlanalyze.UpdateNoWhere] = true
		}
		return c, nil

	case *machparse.DeleteStatement:
		c := writeOnly(sqlanalyze.StatementDelete)
		if s.Where == nil {
			c.Danger[sqlanalyze.DeleteNoWhere] = true
		}
		return c, nil

	case *machparse.TruncateStatement:
		c := writeOnly(sqlanalyze.StatementDDL)
		c.Danger[sqlanalyze.Truncate] = true
		return c, nil

	case *machparse.DropDatabaseStatement:
		c := writeOnly(sqlanalyze.StatementDDL)
		c.Danger[sqlanalyze.DropDatabase] = true
		return c, nil

	case *machparse.DropIndexStatement:
		c := writeOnly(sqlanalyze.StatementDDL)
		c.Danger[sqlanalyze.DropIndex] = true
		return c, nil

	case *machparse.DropTableStatement:
		c := writeOnly(sqlanalyze.StatementDDL)
		c.Danger[sqlanalyze.DropTable] = true
		return c, nil

	case *machparse.AlterTableStatement:
		c := writeOnly(sqlanalyze.StatementDDL)
		for _, action := range s.Actions {
			if _, ok := action.(*machparse.DropColumnAction); ok {
				c.Danger[sqlanalyze.AlterDropColumn] = true
			}
		}
		return c, nil

	default:
		// CREATE TABLE/INDEX/VIEW and other utility statements are writes
		// from the gateway's point of view but carry none of the closed
		// danger kinds.
		return writeOnly(sqlanalyze.StatementDDL), nil
	}
}

func isPragma(stmt string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(stmt)), "PRAGMA")
}

func readOnly(kind sqlanalyze.StatementKind) sqlanalyze.Classification {
	return sqlanalyze.Classification{IsReadOnly: true, Danger: map[sqlanalyze.DangerKind]bool{}, Statement: kind}
}

func writeOnly(kind sqlanalyze.StatementKind) sqlanalyze.Classification {
	return sqlanalyze.Classification{IsReadOnly: false, Danger: map[sqlanalyze.DangerKind]bool{}, Statement: kind}
}

// splitStatements breaks sql into top-level, semicolon-separated statements,
// ignoring semicolons inside string literals or comments. machparse.Parse
// expects one statement at a time.
func splitStatements(sql string) []string {
	var out []string
	var cur strings.Builder
	inString := false
	inLineComment := false
	inBlockComment := false

	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if inLineComment {
			cur.WriteRune(r)
			if r == '\n' {
				inLineComment = false
			}
			continue
		}
		if inBlockComment {
			cur.WriteRune(r)
			if r == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				cur.WriteRune(runes[i+1])
				i++
				inBlockComment = false
			}
			continue
		}
		if inString {
			cur.WriteRune(r)
			if r == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					cur.WriteRune(runes[i+1])
					i++
					continue
				}
				inString = false
			}
			continue
		}

		switch {
		case r == '\'':
			inString = true
			cur.WriteRune(r)
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			inLineComment = true
			cur.WriteRune(r)
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			inBlockComment = true
			cur.WriteRune(r)
		case r == ';':
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}
