// SPDX-License-Identifier: Apache-2.0

// Package sqlanalyze is the AST-based SQL safety analyzer (§4.B). It never
// falls back to textual/regex scanning: a statement that fails to parse is
// rejected outright, because only the AST the backend itself would build
// can be trusted not to admit a classification bypass.
package sqlanalyze

import (
	"fmt"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/gwerrors"
)

// DangerKind is the closed set of destructive operation categories §3
// defines. Multi-statement input classifies to the union of its members.
type DangerKind string

const (
	DropDatabase    DangerKind = "DROP_DATABASE"
	DropTable       DangerKind = "DROP_TABLE"
	DropIndex       DangerKind = "DROP_INDEX"
	Truncate        DangerKind = "TRUNCATE"
	AlterDropColumn DangerKind = "ALTER_DROP_COLUMN"
	DeleteNoWhere   DangerKind = "DELETE_NO_WHERE"
	UpdateNoWhere   DangerKind = "UPDATE_NO_WHERE"
)

// StatementKind is a coarse categorization surfaced alongside the
// read-only/danger verdict, useful for logging and for the executor's
// EXPLAIN dispatch (§4.G).
type StatementKind string

const (
	StatementSelect  StatementKind = "select"
	StatementInsert  StatementKind = "insert"
	StatementUpdate  StatementKind = "update"
	StatementDelete  StatementKind = "delete"
	StatementDDL     StatementKind = "ddl"
	StatementTCL     StatementKind = "tcl"
	StatementPragma  StatementKind = "pragma"
	StatementShow    StatementKind = "show"
	StatementExplain StatementKind = "explain"
	StatementOther   StatementKind = "other"
)

// Classification is the analyzer's verdict for one (possibly
// multi-statement) SQL string.
type Classification struct {
	IsReadOnly bool
	Danger     map[DangerKind]bool
	Statement  StatementKind
}

func newClassification() Classification {
	return Classification{IsReadOnly: true, Danger: map[DangerKind]bool{}, Statement: StatementOther}
}

// merge folds `other` into the receiver using the most-restrictive-wins
// rule (§4.B): read-only stays true only if every statement was read-only,
// and the danger set is the union across all statements.
func (c *Classification) merge(other Classification) {
	c.IsReadOnly = c.IsReadOnly && other.IsReadOnly
	for k, v := range other.Danger {
		if v {
			c.Danger[k] = true
		}
	}
	if c.Statement == StatementOther {
		c.Statement = other.Statement
	}
}

// DangerKinds returns the offending kinds as a sorted-for-determinism slice.
func (c Classification) DangerKinds() []DangerKind {
	order := []DangerKind{DropDatabase, DropTable, DropIndex, Truncate, AlterDropColumn, DeleteNoWhere, UpdateNoWhere}
	var out []DangerKind
	for _, k := range order {
		if c.Danger[k] {
			out = append(out, k)
		}
	}
	return out
}

// IsDangerous reports whether any danger kind is present.
func (c Classification) IsDangerous() bool { return len(c.DangerKinds()) > 0 }

// Policy is the caller-supplied enforcement configuration (§4.B).
type Policy struct {
	RequireReadOnly bool
	AllowDangerous  bool
}

// Analyzer is implemented once per SQL dialect. Backends are a closed set
// (pkg/backend.Kind), so this is deliberately not meant to be implemented
// outside this module's three dialect packages.
type Analyzer interface {
	// Classify parses sql and returns the classification of every
	// statement it contains, merged per §4.B's most-restrictive-wins rule.
	// Parse failure returns a non-nil error; Classify never recovers by
	// scanning text.
	Classify(sql string) (Classification, error)
}

// registry of per-backend analyzers, populated by each dialect package's
// init() via Register. Kept as a package-level registry (rather than a
// constructor parameter threaded everywhere) because the dialect packages
// are leaves with no reason to be constructed more than once per process.
var registry = map[backend.Kind]Analyzer{}

// Register installs the Analyzer for a backend. Called from each dialect
// subpackage's init().
func Register(k backend.Kind, a Analyzer) {
	registry[k] = a
}

// For returns the registered Analyzer for k.
func For(k backend.Kind) (Analyzer, error) {
	a, ok := registry[k]
	if !ok {
		return nil, fmt.Errorf("sqlanalyze: no analyzer registered for backend %q", k)
	}
	return a, nil
}

// Classify is the convenience entry point used by the executor: parse sql
// for backend k and classify it, or return a gwerrors.Parse rejection.
func Classify(k backend.Kind, sql string) (Classification, error) {
	a, err := For(k)
	if err != nil {
		return Classification{}, err
	}
	c, err := a.Classify(sql)
	if err != nil {
		return Classification{}, gwerrors.ParseFailure(string(k), err)
	}
	return c, nil
}

// Enforce applies Policy to a classification, returning a structured
// rejection if the statement violates it (§4.B, §8 properties 1-2).
func Enforce(c Classification, p Policy) error {
	if p.RequireReadOnly && !c.IsReadOnly {
		return gwerrors.ReadOnlyConnection("")
	}
	if !p.AllowDangerous && c.IsDangerous() {
		kinds := make([]string, 0, len(c.DangerKinds()))
		for _, k := range c.DangerKinds() {
			kinds = append(kinds, string(k))
		}
		return gwerrors.Dangerous(kinds)
	}
	return nil
}
