// SPDX-License-Identifier: Apache-2.0

// Package schema is the Schema Introspector (§4.C): list_databases,
// list_tables, and describe_table, normalized into a single shape shared
// by all three backends. Each dialect package registers an Introspector
// against a backend.Kind the same way pkg/sqlanalyze's dialect packages do.
package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oapi-codegen/nullable"

	"github.com/sqlgateway/core/pkg/backend"
)

// TableKind distinguishes base tables from views in list_tables output.
type TableKind string

const (
	KindTable TableKind = "table"
	KindView  TableKind = "view"
)

// Table is one row of list_tables.
type Table struct {
	Name string    `json:"name"`
	Kind TableKind `json:"kind"`
}

// Column describes one column of describe_table. Default distinguishes
// "no DEFAULT clause" (unspecified) from "DEFAULT NULL" (null) from
// "DEFAULT <expr>" (a value) the same way the teacher's migration specs
// use oapi-codegen/nullable.Nullable to keep those three states apart in a
// single optional field.
type Column struct {
	Name         string                    `json:"name"`
	DeclaredType string                    `json:"declared_type"`
	Nullable     bool                      `json:"nullable"`
	Default      nullable.Nullable[string] `json:"default"`
	Ordinal      int                       `json:"ordinal"`
}

// ForeignKey describes one foreign key constraint of describe_table.
type ForeignKey struct {
	Columns           []string `json:"columns"`
	ReferencedTable   string   `json:"referenced_table"`
	ReferencedColumns []string `json:"referenced_columns"`
	OnUpdate          string   `json:"on_update"`
	OnDelete          string   `json:"on_delete"`
}

// Index describes one index of describe_table.
type Index struct {
	Name      string   `json:"name"`
	Unique    bool     `json:"unique"`
	Columns   []string `json:"columns"`
	IsPrimary bool     `json:"is_primary"`
}

// TableDescription is the normalized result of describe_table.
type TableDescription struct {
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primary_key"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
	Indexes     []Index      `json:"indexes"`
}

// Introspector is implemented once per backend dialect.
type Introspector interface {
	// ListDatabases returns the server's databases. Backends that don't
	// support multiple databases (SQLite) return gwerrors.NotSupported.
	ListDatabases(ctx context.Context, conn *sql.DB) ([]string, error)

	// ListTables returns the tables/views visible under schema. schema is
	// ignored by SQLite (there is exactly one implicit schema per file).
	ListTables(ctx context.Context, conn *sql.DB, schema string) ([]Table, error)

	// DescribeTable returns the normalized shape of one table.
	DescribeTable(ctx context.Context, conn *sql.DB, schema, table string) (TableDescription, error)
}

var registry = map[backend.Kind]Introspector{}

// Register installs the Introspector for a backend, called from each
// dialect subpackage's init().
func Register(k backend.Kind, i Introspector) {
	registry[k] = i
}

// For returns the registered Introspector for k.
func For(k backend.Kind) (Introspector, error) {
	i, ok := registry[k]
	if !ok {
		return nil, fmt.Errorf("schema: no introspector registered for backend %q", k)
	}
	return i, nil
}
