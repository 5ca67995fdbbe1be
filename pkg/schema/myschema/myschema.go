// SPDX-License-Identifier: Apache-2.0

// Package myschema is the MySQL dialect of the Schema Introspector (§4.C),
// grounded on skeema's Instance.querySchemaTables/information_schema
// queries (instance.go), reusing jmoiron/sqlx's struct-scanning Select the
// way skeema does against its information_schema connection.
package myschema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/gwerrors"
	"github.com/sqlgateway/core/pkg/schema"
)

func init() {
	schema.Register(backend.MySQL, introspector{})
}

type introspector struct{}

func (introspector) ListDatabases(ctx context.Context, conn *sql.DB) ([]string, error) {
	db := sqlx.NewDb(conn, "mysql")
	var names []string
	query := `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('information_schema', 'performance_schema', 'mysql', 'sys')
		ORDER BY schema_name`
	if err := db.SelectContext(ctx, &names, query); err != nil {
		return nil, gwerrors.Driver("mysql", err)
	}
	return names, nil
}

func (introspector) ListTables(ctx context.Context, conn *sql.DB, schemaName string) ([]schema.Table, error) {
	db := sqlx.NewDb(conn, "mysql")
	var rows []struct {
		Name string `db:"table_name"`
		Type string `db:"table_type"`
	}
	query := `
		SELECT table_name AS table_name, table_type AS table_type
		FROM information_schema.tables
		WHERE table_schema = ?
		ORDER BY table_name`
	if err := db.SelectContext(ctx, &rows, query, schemaName); err != nil {
		return nil, gwerrors.Driver("mysql", err)
	}

	out := make([]schema.Table, 0, len(rows))
	for _, r := range rows {
		out = append(out, schema.Table{Name: r.Name, Kind: tableKind(r.Type)})
	}
	return out, nil
}

func tableKind(informationSchemaType string) schema.TableKind {
	if informationSchemaType == "VIEW" {
		return schema.KindView
	}
	return schema.KindTable
}

func (introspector) DescribeTable(ctx context.Context, conn *sql.DB, schemaName, table string) (schema.TableDescription, error) {
	db := sqlx.NewDb(conn, "mysql")

	exists, err := tableExists(ctx, db, schemaName, table)
	if err != nil {
		return schema.TableDescription{}, err
	}
	if !exists {
		return schema.TableDescription{}, gwerrors.UnknownTable(fmt.Sprintf("%s.%s", schemaName, table))
	}

	cols, err := columns(ctx, db, schemaName, table)
	if err != nil {
		return schema.TableDescription{}, err
	}
	pk, fks, idx, err := constraints(ctx, db, schemaName, table)
	if err != nil {
		return schema.TableDescription{}, err
	}

	return schema.TableDescription{Columns: cols, PrimaryKey: pk, ForeignKeys: fks, Indexes: idx}, nil
}

func tableExists(ctx context.Context, db *sqlx.DB, schemaName, table string) (bool, error) {
	var count int
	err := db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = ? AND table_name = ?`, schemaName, table)
	if err != nil {
		return false, gwerrors.Driver("mysql", err)
	}
	return count > 0, nil
}

func columns(ctx context.Context, db *sqlx.DB, schemaName, table string) ([]schema.Column, error) {
	var rows []struct {
		Name       string         `db:"column_name"`
		Type       string         `db:"column_type"`
		IsNullable string         `db:"is_nullable"`
		Default    sql.NullString `db:"column_default"`
		Ordinal    int            `db:"ordinal_position"`
	}
	query := `
		SELECT column_name AS column_name, column_type AS column_type,
		       is_nullable AS is_nullable, column_default AS column_default,
		       ordinal_position AS ordinal_position
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`
	if err := db.SelectContext(ctx, &rows, query, schemaName, table); err != nil {
		return nil, gwerrors.Driver("mysql", err)
	}

	out := make([]schema.Column, 0, len(rows))
	for _, r := range rows {
		col := schema.Column{Name: r.Name, DeclaredType: r.Type, Nullable: r.IsNullable == "YES", Ordinal: r.Ordinal}
		switch {
		case !r.Default.Valid:
			// No DEFAULT clause at all: leave Default unspecified.
		case strings.EqualFold(r.Default.String, "NULL"):
			col.Default.SetNull()
		default:
			col.Default.Set(r.Default.String)
		}
		out = append(out, col)
	}
	return out, nil
}

func constraints(ctx context.Context, db *sqlx.DB, schemaName, table string) ([]string, []schema.ForeignKey, []schema.Index, error) {
	var keyCols []struct {
		ConstraintName string         `db:"constraint_name"`
		ColumnName     string         `db:"column_name"`
		RefTable       sql.NullString `db:"referenced_table_name"`
		RefColumn      sql.NullString `db:"referenced_column_name"`
	}
	query := `
		SELECT constraint_name AS constraint_name, column_name AS column_name,
		       referenced_table_name AS referenced_table_name,
		       referenced_column_name AS referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ? AND table_name = ?
		ORDER BY constraint_name, ordinal_position`
	if err := db.SelectContext(ctx, &keyCols, query, schemaName, table); err != nil {
		return nil, nil, nil, gwerrors.Driver("mysql", err)
	}

	var pk []string
	fksByName := map[string]*schema.ForeignKey{}
	var fkOrder []string
	for _, kc := range keyCols {
		if kc.ConstraintName == "PRIMARY" {
			pk = append(pk, kc.ColumnName)
			continue
		}
		if !kc.RefTable.Valid {
			continue
		}
		fk, ok := fksByName[kc.ConstraintName]
		if !ok {
			fk = &schema.ForeignKey{ReferencedTable: kc.RefTable.String}
			fksByName[kc.ConstraintName] = fk
			fkOrder = append(fkOrder, kc.ConstraintName)
		}
		fk.Columns = append(fk.Columns, kc.ColumnName)
		fk.ReferencedColumns = append(fk.ReferencedColumns, kc.RefColumn.String)
	}

	var refActions []struct {
		ConstraintName string `db:"constraint_name"`
		UpdateRule     string `db:"update_rule"`
		DeleteRule     string `db:"delete_rule"`
	}
	refQuery := `
		SELECT rc.constraint_name AS constraint_name, rc.update_rule AS update_rule, rc.delete_rule AS delete_rule
		FROM information_schema.referential_constraints rc
		WHERE rc.constraint_schema = ? AND rc.table_name = ?`
	if err := db.SelectContext(ctx, &refActions, refQuery, schemaName, table); err != nil {
		return nil, nil, nil, gwerrors.Driver("mysql", err)
	}
	for _, ra := range refActions {
		if fk, ok := fksByName[ra.ConstraintName]; ok {
			fk.OnUpdate = ra.UpdateRule
			fk.OnDelete = ra.DeleteRule
		}
	}

	fks := make([]schema.ForeignKey, 0, len(fkOrder))
	for _, name := range fkOrder {
		fks = append(fks, *fksByName[name])
	}

	var idxRows []struct {
		Name      string `db:"index_name"`
		NonUnique int    `db:"non_unique"`
		Column    string `db:"column_name"`
	}
	idxQuery := `
		SELECT index_name AS index_name, non_unique AS non_unique, column_name AS column_name
		FROM information_schema.statistics
		WHERE table_schema = ? AND table_name = ?
		ORDER BY index_name, seq_in_index`
	if err := db.SelectContext(ctx, &idxRows, idxQuery, schemaName, table); err != nil {
		return nil, nil, nil, gwerrors.Driver("mysql", err)
	}

	idxByName := map[string]*schema.Index{}
	var idxOrder []string
	for _, r := range idxRows {
		idx, ok := idxByName[r.Name]
		if !ok {
			idx = &schema.Index{Name: r.Name, Unique: r.NonUnique == 0, IsPrimary: r.Name == "PRIMARY"}
			idxByName[r.Name] = idx
			idxOrder = append(idxOrder, r.Name)
		}
		idx.Columns = append(idx.Columns, r.Column)
	}
	idx := make([]schema.Index, 0, len(idxOrder))
	for _, name := range idxOrder {
		idx = append(idx, *idxByName[name])
	}

	return pk, fks, idx, nil
}
