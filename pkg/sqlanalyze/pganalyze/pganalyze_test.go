// SPDX-License-Identifier: Apache-2.0

package pganalyze_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/sqlanalyze"
	_ "github.com/sqlgateway/core/pkg/sqlanalyze/pganalyze"
)

func classify(t *testing.T, sql string) sqlanalyze.Classification {
	t.Helper()
	c, err := sqlanalyze.Classify(backend.Postgres, sql)
	require.NoError(t, err)
	return c
}

func TestSelectIsReadOnly(t *testing.T) {
	c := classify(t, "SELECT * FROM users WHERE id = $1")
	assert.True(t, c.IsReadOnly)
	assert.False(t, c.IsDangerous())
	assert.Equal(t, sqlanalyze.StatementSelect, c.Statement)
}

func TestWithSelectIsReadOnly(t *testing.T) {
	c := classify(t, "WITH recent AS (SELECT * FROM orders) SELECT * FROM recent")
	assert.True(t, c.IsReadOnly)
	assert.Equal(t, sqlanalyze.StatementSelect, c.Statement)
}

func TestShowIsReadOnly(t *testing.T) {
	c := classify(t, "SHOW search_path")
	assert.True(t, c.IsReadOnly)
	assert.Equal(t, sqlanalyze.StatementShow, c.Statement)
}

func TestInsertIsWrite(t *testing.T) {
	c := classify(t, "INSERT INTO users (name) VALUES ('a')")
	assert.False(t, c.IsReadOnly)
	assert.False(t, c.IsDangerous())
}

func TestDeleteWithoutWhereIsDangerous(t *testing.T) {
	c := classify(t, "DELETE FROM users")
	assert.False(t, c.IsReadOnly)
	assert.True(t, c.Danger[sqlanalyze.DeleteNoWhere])
}

// TestDeleteCommentWrappedStillDangerous mirrors scenario S2: wrapping the
// statement in comments must not change the verdict, because the AST parser
// discards comments before the gateway ever sees node structure.
func TestDeleteCommentWrappedStillDangerous(t *testing.T) {
	c := classify(t, "/* cleanup */ DELETE FROM users -- remove everyone\n")
	assert.True(t, c.Danger[sqlanalyze.DeleteNoWhere])
}

func TestDeleteWithWhereTrueStillCountsAsPresent(t *testing.T) {
	c := classify(t, "DELETE FROM users WHERE TRUE")
	assert.False(t, c.Danger[sqlanalyze.DeleteNoWhere])
}

func TestUpdateWithoutWhereIsDangerous(t *testing.T) {
	c := classify(t, "UPDATE users SET active = false")
	assert.True(t, c.Danger[sqlanalyze.UpdateNoWhere])
}

func TestUpdateWithWhereIsNotDangerous(t *testing.T) {
	c := classify(t, "UPDATE users SET active = false WHERE id = $1")
	assert.False(t, c.Danger[sqlanalyze.UpdateNoWhere])
}

func TestDropTableIsDangerous(t *testing.T) {
	c := classify(t, "DROP TABLE users")
	assert.True(t, c.Danger[sqlanalyze.DropTable])
	assert.True(t, c.IsDangerous())
}

func TestDropDatabaseIsDangerous(t *testing.T) {
	c := classify(t, "DROP DATABASE analytics")
	assert.True(t, c.Danger[sqlanalyze.DropDatabase])
}

func TestTruncateIsDangerous(t *testing.T) {
	c := classify(t, "TRUNCATE orders")
	assert.True(t, c.Danger[sqlanalyze.Truncate])
}

func TestAlterTableDropColumnIsDangerous(t *testing.T) {
	c := classify(t, "ALTER TABLE users DROP COLUMN legacy_flag")
	assert.True(t, c.Danger[sqlanalyze.AlterDropColumn])
}

func TestMultiStatementUnionsDanger(t *testing.T) {
	c := classify(t, "SELECT 1; DELETE FROM users; DROP TABLE audit_log;")
	assert.False(t, c.IsReadOnly)
	assert.True(t, c.Danger[sqlanalyze.DeleteNoWhere])
	assert.True(t, c.Danger[sqlanalyze.DropTable])
}

func TestParseFailureIsRejectedNotScanned(t *testing.T) {
	_, err := sqlanalyze.Classify(backend.Postgres, "SELEC * FORM users")
	require.Error(t, err)
}

func TestEnforceBlocksDangerousByDefault(t *testing.T) {
	c := classify(t, "DROP TABLE users")
	err := sqlanalyze.Enforce(c, sqlanalyze.Policy{})
	require.Error(t, err)
}

func TestEnforceAllowsDangerousWhenPermitted(t *testing.T) {
	c := classify(t, "DROP TABLE users")
	err := sqlanalyze.Enforce(c, sqlanalyze.Policy{AllowDangerous: true})
	require.NoError(t, err)
}

func TestEnforceBlocksWritesOnReadOnlyConnection(t *testing.T) {
	c := classify(t, "INSERT INTO users (name) VALUES ('a')")
	err := sqlanalyze.Enforce(c, sqlanalyze.Policy{RequireReadOnly: true, AllowDangerous: true})
	require.Error(t, err)
}

func TestCommentAndWhitespaceInvariance(t *testing.T) {
	plain := classify(t, "DELETE FROM users")
	spaced := classify(t, "  /* note */ DELETE   FROM    users  -- x\n")
	assert.Equal(t, plain.Danger, spaced.Danger)
	assert.Equal(t, plain.IsReadOnly, spaced.IsReadOnly)
}
