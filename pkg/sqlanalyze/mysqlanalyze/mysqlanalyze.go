// SPDX-License-Identifier: Apache-2.0

// Package mysqlanalyze is the MySQL dialect of the SQL safety analyzer
// (§4.B), built on the same sqlparser fork go-mysql-server itself parses
// connection traffic with.
package mysqlanalyze

import (
	"errors"
	"fmt"
	"io"

	"github.com/dolthub/vitess/go/vt/sqlparser"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/sqlanalyze"
)

func init() {
	sqlanalyze.Register(backend.MySQL, analyzer{})
}

type analyzer struct{}

func (analyzer) Classify(sql string) (sqlanalyze.Classification, error) {
	out := sqlanalyze.Classification{IsReadOnly: true, Danger: map[sqlanalyze.DangerKind]bool{}, Statement: sqlanalyze.StatementOther}

	parsed := false
	tokens := sqlparser.NewStringTokenizer(sql)
	for {
		stmt, err := sqlparser.ParseNext(tokens)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return sqlanalyze.Classification{}, err
		}
		parsed = true

		c := classifyStatement(stmt)
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
	if !parsed {
		return sqlanalyze.Classification{}, fmt.Errorf("mysqlanalyze: empty statement")
	}
	return out, nil
}

func classifyStatement(stmt sqlparser.Statement) sqlanalyze.Classification {
	switch s := stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union, *sqlparser.ParenSelect:
		return readOnly(sqlanalyze.StatementSelect)

	case *sqlparser.Show:
		return readOnly(sqlanalyze.StatementShow)

	case *sqlparser.Explain, *sqlparser.ExplainTab:
		return readOnly(sqlanalyze.StatementExplain)

	case *sqlparser.Begin, *sqlparser.Commit, *sqlparser.Rollback, *sqlparser.Savepoint:
		return readOnly(sqlanalyze.StatementTCL)

	case *sqlparser.Set, *sqlparser.OtherRead:
		return readOnly(sqlanalyze.StatementOther)

	case *sqlparser.Insert:
		return writeOnly(sqlanalyze.StatementInsert)

	case *sqlparser.Update:
		c := writeOnly(sqlanalyze.StatementUpdate)
		if s.Where == nil {
			c.Danger[sqlanalyze.UpdateNoWhere] = true
		}
		return c

	case *sqlparser.Delete:
		c := writeOnly(sqlanalyze.StatementDelete)
		if s.Where == nil {
			c.Danger[sqlanalyze.DeleteNoWhere] = true
		}
		return c

	case *sqlparser.TruncateTable:
		c := writeOnly(sqlanalyze.StatementDDL)
		c.Danger[sqlanalyze.Truncate] = true
		return c

	case *sqlparser.DropDatabase:
		c := writeOnly(sqlanalyze.StatementDDL)
		c.Danger[sqlanalyze.DropDatabase] = true
		return c

	case *sqlparser.DropTable:
		c := writeOnly(sqlanalyze.StatementDDL)
		c.Danger[sqlanalyze.DropTable] = true
		return c

	case *sqlparser.AlterTable:
		c := writeOnly(sqlanalyze.StatementDDL)
		for _, opt := range s.AlterOptions {
			switch k := opt.(type) {
			case *sqlparser.DropColumn:
				c.Danger[sqlanalyze.AlterDropColumn] = true
			case *sqlparser.DropKey:
				if k.Type == sqlparser.NormalKeyType {
					c.Danger[sqlanalyze.DropIndex] = true
				}
			}
		}
		return c

	default:
		// CREATE TABLE/INDEX/VIEW, GRANT, and other utility statements are
		// writes from the gateway's point of view but carry none of the
		// closed danger kinds.
		return writeOnly(sqlanalyze.StatementDDL)
	}
}

func readOnly(kind sqlanalyze.StatementKind) sqlanalyze.Classification {
	return sqlanalyze.Classification{IsReadOnly: true, Danger: map[sqlanalyze.DangerKind]bool{}, Statement: kind}
}

func writeOnly(kind sqlanalyze.StatementKind) sqlanalyze.Classification {
	return sqlanalyze.Classification{IsReadOnly: false, Danger: map[sqlanalyze.DangerKind]bool{}, Statement: kind}
}
