// SPDX-License-Identifier: Apache-2.0

// Package pgschema is the PostgreSQL dialect of the Schema Introspector
// (§4.C), grounded on the pg_catalog/information_schema metadata query the
// pgEdge Postgres MCP adapter runs in its LoadMetadataFor, generalized from
// a one-shot cached load into per-call, schema-scoped queries.
package pgschema

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
	schema.Register(backend.Postgres, introspector{})
}

type introspector struct{}

func (introspector) ListDatabases(ctx context.Context, conn *sql.DB) ([]string, error) {
	rows, err := conn.QueryContext(ctx, `SELECT datname FROM pg_database WHERE datistemplate = false ORDER BY datname`)
	if err != nil {
		return nil, gwerrors.Driver("postgres", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, gwerrors.Driver("postgres", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (introspector) ListTables(ctx context.Context, conn *sql.DB, schemaName string) ([]schema.Table, error) {
	const query = `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = $1
		ORDER BY table_name`

	rows, err := conn.QueryContext(ctx, query, schemaName)
	if err != nil {
		return nil, gwerrors.Driver("postgres", err)
	}
	defer rows.Close()

	var out []schema.Table
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, gwerrors.Driver("postgres", err)
		}
		out = append(out, schema.Table{Name: name, Kind: tableKind(kind)})
	}
	return out, rows.Err()
}

func tableKind(informationSchemaType string) schema.TableKind {
	if informationSchemaType == "VIEW" {
		return schema.KindView
	}
	return schema.KindTable
}

func (introspector) DescribeTable(ctx context.Context, conn *sql.DB, schemaName, table string) (schema.TableDescription, error) {
	exists, err := tableExists(ctx, conn, schemaName, table)
	if err != nil {
		return schema.TableDescription{}, err
	}
	if !exists {
		return schema.TableDescription{}, gwerrors.UnknownTable(fmt.Sprintf("%s.%s", schemaName, table))
	}

	cols, err := columns(ctx, conn, schemaName, table)
	if err != nil {
		return schema.TableDescription{}, err
	}
	pk, err := primaryKey(ctx, conn, schemaName, table)
	if err != nil {
		return schema.TableDescription{}, err
	}
	fks, err := foreignKeys(ctx, conn, schemaName, table)
	if err != nil {
		return schema.TableDescription{}, err
	}
	idx, err := indexes(ctx, conn, schemaName, table, pk)
	if err != nil {
		return schema.TableDescription{}, err
	}

	return schema.TableDescription{Columns: cols, PrimaryKey: pk, ForeignKeys: fks, Indexes: idx}, nil
}

func tableExists(ctx context.Context, conn *sql.DB, schemaName, table string) (bool, error) {
	var exists bool
	err := conn.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)`, schemaName, table).Scan(&exists)
	if err != nil {
		return false, gwerrors.Driver("postgres", err)
	}
	return exists, nil
}

func columns(ctx context.Context, conn *sql.DB, schemaName, table string) ([]schema.Column, error) {
	const query = `
		SELECT column_name, data_type, is_nullable, column_default, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	rows, err := conn.QueryContext(ctx, query, schemaName, table)
	if err != nil {
		return nil, gwerrors.Driver("postgres", err)
	}
	defer rows.Close()

	var out []schema.Column
	for rows.Next() {
		var name, dataType, isNullable string
		var def sql.NullString
		var ordinal int
		if err := rows.Scan(&name, &dataType, &isNullable, &def, &ordinal); err != nil {
			return nil, gwerrors.Driver("postgres", err)
		}
		col := schema.Column{Name: name, DeclaredType: dataType, Nullable: isNullable == "YES", Ordinal: ordinal}
		switch {
		case !def.Valid:
			// No DEFAULT clause at all: leave Default unspecified.
		case strings.EqualFold(def.String, "NULL"):
			col.Default.SetNull()
		default:
			col.Default.Set(def.String)
		}
		out = append(out, col)
	}
	return out, rows.Err()
}

func primaryKey(ctx context.Context, conn *sql.DB, schemaName, table string) ([]string, error) {
	const query = `
		SELECT a.attname
		FROM pg_constraint con
		JOIN pg_class c ON c.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(con.conkey)
		WHERE con.contype = 'p' AND n.nspname = $1 AND c.relname = $2
		ORDER BY array_position(con.conkey, a.attnum)`

	rows, err := conn.QueryContext(ctx, query, schemaName, table)
	if err != nil {
		return nil, gwerrors.Driver("postgres", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, gwerrors.Driver("postgres", err)
		}
		out = append(out, col)
	}
	return out, rows.Err()
}

func foreignKeys(ctx context.Context, conn *sql.DB, schemaName, table string) ([]schema.ForeignKey, error) {
	const query = `
		SELECT con.conname,
			a.attname,
			fn.nspname || '.' || fc.relname AS ref_table,
			fa.attname,
			con.confupdtype,
			con.confdeltype
		FROM pg_constraint con
		JOIN pg_class c ON c.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_class fc ON fc.oid = con.confrelid
		JOIN pg_namespace fn ON fn.oid = fc.relnamespace
		JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS cols(col_num, ref_num, ord) ON true
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = cols.col_num
		JOIN pg_attribute fa ON fa.attrelid = fc.oid AND fa.attnum = cols.ref_num
		WHERE con.contype = 'f' AND n.nspname = $1 AND c.relname = $2
		ORDER BY con.conname, cols.ord`

	rows, err := conn.QueryContext(ctx, query, schemaName, table)
	if err != nil {
		return nil, gwerrors.Driver("postgres", err)
	}
	defer rows.Close()

	byName := map[string]*schema.ForeignKey{}
	var order []string
	for rows.Next() {
		var name, col, refTable, refCol, onUpdate, onDelete string
		if err := rows.Scan(&name, &col, &refTable, &refCol, &onUpdate, &onDelete); err != nil {
			return nil, gwerrors.Driver("postgres", err)
		}
		fk, ok := byName[name]
		if !ok {
			fk = &schema.ForeignKey{
				ReferencedTable: refTable,
				OnUpdate:        pgConfAction(onUpdate),
				OnDelete:        pgConfAction(onDelete),
			}
			byName[name] = fk
			order = append(order, name)
		}
		fk.Columns = append(fk.Columns, col)
		fk.ReferencedColumns = append(fk.ReferencedColumns, refCol)
	}
	if err := rows.Err(); err != nil {
		return nil, gwerrors.Driver("postgres", err)
	}

	out := make([]schema.ForeignKey, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, nil
}

func pgConfAction(code string) string {
	switch code {
	case "a":
		return "NO ACTION"
	case "r":
		return "RESTRICT"
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	default:
		return code
	}
}

func indexes(ctx context.Context, conn *sql.DB, schemaName, table string, primaryKey []string) ([]schema.Index, error) {
	const query = `
		SELECT ic.relname, i.indisunique, a.attname
		FROM pg_index i
		JOIN pg_class c ON c.oid = i.indrelid
		JOIN pg_class ic ON ic.oid = i.indexrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(i.indkey)
		WHERE n.nspname = $1 AND c.relname = $2
		ORDER BY ic.relname`

	rows, err := conn.QueryContext(ctx, query, schemaName, table)
	if err != nil {
		return nil, gwerrors.Driver("postgres", err)
	}
	defer rows.Close()

	byName := map[string]*schema.Index{}
	var order []string
	pkSet := make(map[string]bool, len(primaryKey))
	for _, c := range primaryKey {
		pkSet[c] = true
	}

	for rows.Next() {
		var name string
		var unique bool
		var col string
		if err := rows.Scan(&name, &unique, &col); err != nil {
			return nil, gwerrors.Driver("postgres", err)
		}
		idx, ok := byName[name]
		if !ok {
			idx = &schema.Index{Name: name, Unique: unique}
			byName[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, gwerrors.Driver("postgres", err)
	}

	out := make([]schema.Index, 0, len(order))
	for _, name := range order {
		idx := *byName[name]
		idx.IsPrimary = len(idx.Columns) > 0 && allIn(idx.Columns, pkSet)
		out = append(out, idx)
	}
	return out, nil
}

func allIn(cols []string, set map[string]bool) bool {
	for _, c := range cols {
		if !set[c] {
			return false
		}
	}
	return true
}
