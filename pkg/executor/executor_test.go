// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/gwerrors"
	"github.com/sqlgateway/core/pkg/sqlanalyze"
	_ "github.com/sqlgateway/core/pkg/sqlanalyze/sqliteanalyze"
	"github.com/sqlgateway/core/pkg/values"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	return db
}

func readWrite() sqlanalyze.Policy { return sqlanalyze.Policy{RequireReadOnly: false, AllowDangerous: false} }
func readOnly() sqlanalyze.Policy  { return sqlanalyze.Policy{RequireReadOnly: true, AllowDangerous: false} }

func TestRunExecuteInsertPopulatesLastInsertID(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	res, err := RunExecute(context.Background(), backend.SQLite, db,
		"INSERT INTO users (name) VALUES (?)", []values.Cell{values.OfText("ada")}, readWrite())
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.RowsAffected)
	require.NotNil(t, res.LastInsertID)
	assert.EqualValues(t, 1, *res.LastInsertID)
}

func TestRunQueryDecodesRows(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	_, err := db.Exec(`INSERT INTO users (name) VALUES ('grace')`)
	require.NoError(t, err)

	result, err := RunQuery(context.Background(), backend.SQLite, db, "SELECT id, name FROM users", nil, readOnly())
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Len(t, result.Columns, 2)
	assert.Equal(t, "name", result.Columns[1].Name)
	assert.Equal(t, "grace", result.Rows[0][1].Text)
}

func TestRunQueryRejectsWriteUnderReadOnlyPolicy(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	_, err := RunQuery(context.Background(), backend.SQLite, db, "DELETE FROM users", nil, readOnly())
	require.Error(t, err)
	gwerr, ok := gwerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, gwerrors.KindPermission, gwerr.Kind)
}

func TestRunExecuteBlocksDangerousByDefault(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	_, err := RunExecute(context.Background(), backend.SQLite, db, "DELETE FROM users", nil, readWrite())
	require.Error(t, err)
	gwerr, ok := gwerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, gwerrors.KindDangerous, gwerr.Kind)
}

func TestRunExecuteAllowsDangerousWhenPermitted(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	_, err := db.Exec(`INSERT INTO users (name) VALUES ('ada')`)
	require.NoError(t, err)

	policy := sqlanalyze.Policy{RequireReadOnly: false, AllowDangerous: true}
	res, err := RunExecute(context.Background(), backend.SQLite, db, "DELETE FROM users", nil, policy)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.RowsAffected)
}

func TestRunExplainUsesQueryPlanForSelect(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	result, err := RunExplain(context.Background(), backend.SQLite, db, "SELECT * FROM users", readOnly())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Columns)
}

func TestHasReturning(t *testing.T) {
	assert.True(t, hasReturning("INSERT INTO t (x) VALUES (1) RETURNING id"))
	assert.False(t, hasReturning("INSERT INTO t (x) VALUES (1)"))
}
