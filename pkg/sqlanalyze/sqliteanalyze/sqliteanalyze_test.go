// SPDX-License-Identifier: Apache-2.0

package sqliteanalyze_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/sqlanalyze"
	_ "github.com/sqlgateway/core/pkg/sqlanalyze/sqliteanalyze"
)

func classify(t *testing.T, sql string) sqlanalyze.Classification {
	t.Helper()
	c, err := sqlanalyze.Classify(backend.SQLite, sql)
	require.NoError(t, err)
	return c
}

func TestSelectIsReadOnly(t *testing.T) {
	c := classify(t, "SELECT * FROM users WHERE id = 1")
	assert.True(t, c.IsReadOnly)
	assert.False(t, c.IsDangerous())
}

func TestPragmaIsReadOnly(t *testing.T) {
	c := classify(t, "PRAGMA table_info(users)")
	assert.True(t, c.IsReadOnly)
	assert.Equal(t, sqlanalyze.StatementPragma, c.Statement)
}

// TestDropTableIsDangerous mirrors scenario S1.
func TestDropTableIsDangerous(t *testing.T) {
	c := classify(t, "DROP TABLE users")
	assert.True(t, c.Danger[sqlanalyze.DropTable])
	assert.True(t, c.IsDangerous())
}

func TestDeleteWithoutWhereIsDangerous(t *testing.T) {
	c := classify(t, "DELETE FROM users")
	assert.True(t, c.Danger[sqlanalyze.DeleteNoWhere])
}

// TestDeleteCommentWrappedStillDangerous mirrors scenario S2.
func TestDeleteCommentWrappedStillDangerous(t *testing.T) {
	c := classify(t, "/* cleanup */ DELETE FROM users -- remove everyone\n")
	assert.True(t, c.Danger[sqlanalyze.DeleteNoWhere])
}

func TestDeleteWithWhereIsNotDangerous(t *testing.T) {
	c := classify(t, "DELETE FROM users WHERE id = 1")
	assert.False(t, c.Danger[sqlanalyze.DeleteNoWhere])
}

func TestUpdateWithoutWhereIsDangerous(t *testing.T) {
	c := classify(t, "UPDATE users SET active = 0")
	assert.True(t, c.Danger[sqlanalyze.UpdateNoWhere])
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

func TestParseFailureIsRejected(t *testing.T) {
	_, err := sqlanalyze.Classify(backend.SQLite, "SELEC * FORM users")
	require.Error(t, err)
}

func TestEnforceBlocksDangerousByDefault(t *testing.T) {
	c := classify(t, "DROP TABLE users")
	err := sqlanalyze.Enforce(c, sqlanalyze.Policy{})
	require.Error(t, err)
}
