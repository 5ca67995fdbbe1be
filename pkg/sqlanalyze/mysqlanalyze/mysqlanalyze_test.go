// SPDX-License-Identifier: Apache-2.0

package mysqlanalyze_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/sqlanalyze"
	_ "github.com/sqlgateway/core/pkg/sqlanalyze/mysqlanalyze"
)

func classify(t *testing.T, sql string) sqlanalyze.Classification {
	t.Helper()
	c, err := sqlanalyze.Classify(backend.MySQL, sql)
	require.NoError(t, err)
	return c
}

func TestSelectIsReadOnly(t *testing.T) {
	c := classify(t, "SELECT * FROM users WHERE id = ?")
	assert.True(t, c.IsReadOnly)
	assert.False(t, c.IsDangerous())
}

func TestShowIsReadOnly(t *testing.T) {
	c := classify(t, "SHOW TABLES")
	assert.True(t, c.IsReadOnly)
	assert.Equal(t, sqlanalyze.StatementShow, c.Statement)
}

func TestDeleteWithoutWhereIsDangerous(t *testing.T) {
	c := classify(t, "DELETE FROM users")
	assert.False(t, c.IsReadOnly)
	assert.True(t, c.Danger[sqlanalyze.DeleteNoWhere])
}

func TestDeleteCommentWrappedStillDangerous(t *testing.T) {
	c := classify(t, "/* cleanup */ DELETE FROM users -- remove everyone\n")
	assert.True(t, c.Danger[sqlanalyze.DeleteNoWhere])
}

func TestUpdateWithWhereIsNotDangerous(t *testing.T) {
	c := classify(t, "UPDATE users SET active = 0 WHERE id = ?")
	assert.False(t, c.Danger[sqlanalyze.UpdateNoWhere])
}

func TestDropTableIsDangerous(t *testing.T) {
	c := classify(t, "DROP TABLE users")
	assert.True(t, c.Danger[sqlanalyze.DropTable])
}

func TestTruncateIsDangerous(t *testing.T) {
	c := classify(t, "TRUNCATE TABLE orders")
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
	_, err := sqlanalyze.Classify(backend.MySQL, "SELEC * FORM users")
	require.Error(t, err)
}
