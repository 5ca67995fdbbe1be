// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"database/sql"
	"strings"

	"github.com/sqlgateway/core/pkg/values"
)

// ColumnCategory classifies a *sql.ColumnType into the decode-dispatch
// category values.Decode needs (§4.A: "categorize by the driver's column
// class ... never by the textual declared type string"). Each backend's
// DatabaseTypeName() vocabulary differs, so this switches per Kind rather
// than trying to share one table across all three drivers.
func (k Kind) ColumnCategory(ct *sql.ColumnType) (values.Category, values.TemporalKind) {
	name := strings.ToUpper(ct.DatabaseTypeName())
	switch k {
	case Postgres:
		return pgCategory(name)
	case MySQL:
		return mysqlCategory(name)
	case SQLite:
		return sqliteCategory(name)
	default:
		return values.CategoryOther, 0
	}
}

func pgCategory(name string) (values.Category, values.TemporalKind) {
	if strings.HasPrefix(name, "_") {
		return values.CategoryArray, 0
	}
	switch name {
	case "BOOL":
		return values.CategoryBoolean, 0
	case "INT2", "INT4", "INT8":
		return values.CategoryInteger, 0
	case "FLOAT4", "FLOAT8":
		return values.CategoryFloat, 0
	case "NUMERIC":
		return values.CategoryDecimal, 0
	case "BYTEA":
		return values.CategoryBinary, 0
	case "DATE":
		return values.CategoryTemporal, values.TemporalDate
	case "TIME":
		return values.CategoryTemporal, values.TemporalTime
	case "TIMESTAMP":
		return values.CategoryTemporal, values.TemporalTimestamp
	case "TIMESTAMPTZ":
		return values.CategoryTemporal, values.TemporalTimestampTZ
	case "UUID":
		return values.CategoryUUID, 0
	case "JSON", "JSONB":
		return values.CategoryJSON, 0
	case "TEXT", "VARCHAR", "BPCHAR", "NAME":
		return values.CategoryText, 0
	default:
		return values.CategoryOther, 0
	}
}

func mysqlCategory(name string) (values.Category, values.TemporalKind) {
	switch {
	case name == "TINYINT" || name == "SMALLINT" || name == "MEDIUMINT" ||
		name == "INT" || name == "INTEGER" || name == "BIGINT":
		return values.CategoryInteger, 0
	case strings.Contains(name, "UNSIGNED"):
		return values.CategoryUnsigned, 0
	case name == "FLOAT" || name == "DOUBLE":
		return values.CategoryFloat, 0
	case name == "DECIMAL":
		return values.CategoryDecimal, 0
	case name == "BLOB" || name == "TINYBLOB" || name == "MEDIUMBLOB" || name == "LONGBLOB" || name == "BINARY" || name == "VARBINARY":
		return values.CategoryBinary, 0
	case name == "DATE":
		return values.CategoryTemporal, values.TemporalDate
	case name == "TIME":
		return values.CategoryTemporal, values.TemporalTime
	case name == "DATETIME" || name == "TIMESTAMP":
		return values.CategoryTemporal, values.TemporalTimestamp
	case name == "JSON":
		return values.CategoryJSON, 0
	case name == "VARCHAR" || name == "CHAR" || name == "TEXT" || name == "TINYTEXT" || name == "MEDIUMTEXT" || name == "LONGTEXT":
		return values.CategoryText, 0
	default:
		return values.CategoryOther, 0
	}
}

// sqliteCategory classifies by SQLite's type affinity rules, since a
// driver-reported declared type is usually the column's raw DDL text (e.g.
// "VARCHAR(32)", "INT", "" for expression results) rather than a fixed
// vocabulary. modernc.org/sqlite reports whatever the table's DDL declared,
// so matching proceeds by substring per SQLite §3.1's affinity algorithm.
func sqliteCategory(name string) (values.Category, values.TemporalKind) {
	switch {
	case name == "":
		return values.CategoryOther, 0
	case strings.Contains(name, "BOOL"):
		return values.CategoryBoolean, 0
	case strings.Contains(name, "INT"):
		return values.CategoryInteger, 0
	case strings.Contains(name, "REAL") || strings.Contains(name, "FLOA") || strings.Contains(name, "DOUB"):
		return values.CategoryFloat, 0
	case strings.Contains(name, "DECIMAL") || strings.Contains(name, "NUMERIC"):
		return values.CategoryDecimal, 0
	case strings.Contains(name, "BLOB"):
		return values.CategoryBinary, 0
	case strings.Contains(name, "DATETIME") || strings.Contains(name, "TIMESTAMP"):
		return values.CategoryTemporal, values.TemporalTimestamp
	case name == "DATE":
		return values.CategoryTemporal, values.TemporalDate
	case name == "TIME":
		return values.CategoryTemporal, values.TemporalTime
	case strings.Contains(name, "JSON"):
		return values.CategoryJSON, 0
	case strings.Contains(name, "CHAR") || strings.Contains(name, "CLOB") || strings.Contains(name, "TEXT"):
		return values.CategoryText, 0
	default:
		return values.CategoryText, 0
	}
}
