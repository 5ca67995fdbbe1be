// SPDX-License-Identifier: Apache-2.0

// Package sqliteschema is the SQLite dialect of the Schema Introspector
// (§4.C): sqlite_master plus the PRAGMA table_info/foreign_key_list/
// index_list/index_info family, SQLite's native catalog-introspection
// surface.
package sqliteschema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/gwerrors"
	"github.com/sqlgateway/core/pkg/schema"
)

func init() {
	schema.Register(backend.SQLite, introspector{})
}

type introspector struct{}

func (introspector) ListDatabases(ctx context.Context, conn *sql.DB) ([]string, error) {
	return nil, gwerrors.NotSupported("sqlite", "list_databases")
}

// ListTables ignores schemaName: a SQLite connection has exactly one
// implicit schema per file (per §4.C).
func (introspector) ListTables(ctx context.Context, conn *sql.DB, schemaName string) ([]schema.Table, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT name, type FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, gwerrors.Driver("sqlite", err)
	}
	defer rows.Close()

	var out []schema.Table
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, gwerrors.Driver("sqlite", err)
		}
		tk := schema.KindTable
		if kind == "view" {
			tk = schema.KindView
		}
		out = append(out, schema.Table{Name: name, Kind: tk})
	}
	return out, rows.Err()
}

func (introspector) DescribeTable(ctx context.Context, conn *sql.DB, schemaName, table string) (schema.TableDescription, error) {
	exists, err := tableExists(ctx, conn, table)
	if err != nil {
		return schema.TableDescription{}, err
	}
	if !exists {
		return schema.TableDescription{}, gwerrors.UnknownTable(table)
	}

	cols, pk, err := columnsAndPK(ctx, conn, table)
	if err != nil {
		return schema.TableDescription{}, err
	}
	fks, err := foreignKeys(ctx, conn, table)
	if err != nil {
		return schema.TableDescription{}, err
	}
	idx, err := indexes(ctx, conn, table, pk)
	if err != nil {
		return schema.TableDescription{}, err
	}

	return schema.TableDescription{Columns: cols, PrimaryKey: pk, ForeignKeys: fks, Indexes: idx}, nil
}

func tableExists(ctx context.Context, conn *sql.DB, table string) (bool, error) {
	var count int
	err := conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`, table).Scan(&count)
	if err != nil {
		return false, gwerrors.Driver("sqlite", err)
	}
	return count > 0, nil
}

// columnsAndPK uses PRAGMA table_info, whose `pk` column is a 1-based
// ordinal within the primary key (0 = not part of it) rather than a bool,
// letting composite primary keys be reconstructed in column order.
func columnsAndPK(ctx context.Context, conn *sql.DB, table string) ([]schema.Column, []string, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(table)))
	if err != nil {
		return nil, nil, gwerrors.Driver("sqlite", err)
	}
	defer rows.Close()

	var cols []schema.Column
	pkByOrdinal := map[int]string{}
	for rows.Next() {
		var cid int
		var name, declType string
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dflt, &pk); err != nil {
			return nil, nil, gwerrors.Driver("sqlite", err)
		}
		col := schema.Column{Name: name, DeclaredType: declType, Nullable: notNull == 0, Ordinal: cid + 1}
		switch {
		case !dflt.Valid:
			// No DEFAULT clause at all: leave Default unspecified.
		case strings.EqualFold(dflt.String, "NULL"):
			col.Default.SetNull()
		default:
			col.Default.Set(dflt.String)
		}
		cols = append(cols, col)
		if pk > 0 {
			pkByOrdinal[pk] = name
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, gwerrors.Driver("sqlite", err)
	}

	pk := make([]string, 0, len(pkByOrdinal))
	for i := 1; i <= len(pkByOrdinal); i++ {
		pk = append(pk, pkByOrdinal[i])
	}
	return cols, pk, nil
}

func foreignKeys(ctx context.Context, conn *sql.DB, table string) ([]schema.ForeignKey, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf(`PRAGMA foreign_key_list(%s)`, quoteIdent(table)))
	if err != nil {
		return nil, gwerrors.Driver("sqlite", err)
	}
	defer rows.Close()

	byID := map[int]*schema.ForeignKey{}
	var order []int
	for rows.Next() {
		var id, seq int
		var refTable, from, to, onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, gwerrors.Driver("sqlite", err)
		}
		fk, ok := byID[id]
		if !ok {
			fk = &schema.ForeignKey{ReferencedTable: refTable, OnUpdate: onUpdate, OnDelete: onDelete}
			byID[id] = fk
			order = append(order, id)
		}
		fk.Columns = append(fk.Columns, from)
		fk.ReferencedColumns = append(fk.ReferencedColumns, to)
	}
	if err := rows.Err(); err != nil {
		return nil, gwerrors.Driver("sqlite", err)
	}

	out := make([]schema.ForeignKey, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

func indexes(ctx context.Context, conn *sql.DB, table string, primaryKey []string) ([]schema.Index, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf(`PRAGMA index_list(%s)`, quoteIdent(table)))
	if err != nil {
		return nil, gwerrors.Driver("sqlite", err)
	}
	defer rows.Close()

	type listRow struct {
		seq     int
		name    string
		unique  int
		origin  string
		partial int
	}
	var list []listRow
	for rows.Next() {
		var r listRow
		if err := rows.Scan(&r.seq, &r.name, &r.unique, &r.origin, &r.partial); err != nil {
			return nil, gwerrors.Driver("sqlite", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, gwerrors.Driver("sqlite", err)
	}

	pkSet := make(map[string]bool, len(primaryKey))
	for _, c := range primaryKey {
		pkSet[c] = true
	}

	out := make([]schema.Index, 0, len(list))
	for _, r := range list {
		cols, err := indexColumns(ctx, conn, r.name)
		if err != nil {
			return nil, err
		}
		out = append(out, schema.Index{
			Name:      r.name,
			Unique:    r.unique != 0,
			Columns:   cols,
			IsPrimary: r.origin == "pk" || (len(cols) > 0 && allIn(cols, pkSet)),
		})
	}
	return out, nil
}

func indexColumns(ctx context.Context, conn *sql.DB, index string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf(`PRAGMA index_info(%s)`, quoteIdent(index)))
	if err != nil {
		return nil, gwerrors.Driver("sqlite", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, gwerrors.Driver("sqlite", err)
		}
		if name.Valid {
			cols = append(cols, name.String)
		}
	}
	return cols, rows.Err()
}

func allIn(cols []string, set map[string]bool) bool {
	for _, c := range cols {
		if !set[c] {
			return false
		}
	}
	return true
}

// quoteIdent double-quotes a SQLite identifier for use inside a PRAGMA
// call, which does not accept bound parameters. Table/index names come
// from sqlite_master/PRAGMA output already validated by a prior catalog
// query, not from unchecked caller input.
func quoteIdent(name string) string {
	return `"` + escapeQuotes(name) + `"`
}

func escapeQuotes(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '"' {
			out = append(out, '"', '"')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
