// SPDX-License-Identifier: Apache-2.0

package txregistry

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/gwerrors"
)

func openTx(t *testing.T) (*sql.DB, *sql.Tx) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	return db, tx
}

func TestClampTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, ClampTimeout(0))
	assert.Equal(t, MinTimeout, ClampTimeout(-5*time.Second))
	assert.Equal(t, MaxTimeout, ClampTimeout(10*time.Minute))
	assert.Equal(t, 30*time.Second, ClampTimeout(30*time.Second))
}

func TestBeginUseCommitLifecycle(t *testing.T) {
	r := New()
	defer r.Close()

	db, tx := openTx(t)
	defer db.Close()

	var released bool
	id := r.Begin("conn1", backend.SQLite, tx, 0, func() { released = true })
	require.NotEmpty(t, id)

	err := r.Use(context.Background(), id, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "CREATE TABLE t (x INT)")
		return err
	})
	require.NoError(t, err)

	require.NoError(t, r.Commit(id))
	assert.True(t, released)

	summaries := r.List()
	assert.Empty(t, summaries)

	err = r.Use(context.Background(), id, func(ctx context.Context, tx *sql.Tx) error { return nil })
	require.Error(t, err)
	gwerr, ok := gwerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, gwerrors.KindTransaction, gwerr.Kind)
}

func TestRollbackFinalizesAndRemoves(t *testing.T) {
	r := New()
	defer r.Close()

	db, tx := openTx(t)
	defer db.Close()

	id := r.Begin("conn1", backend.SQLite, tx, 0, func() {})
	require.NoError(t, r.Rollback(id))

	_, ok := r.lookup(id)
	assert.False(t, ok)
}

func TestUnknownTransactionIDIsNotFound(t *testing.T) {
	r := New()
	defer r.Close()

	err := r.Commit("does-not-exist")
	require.Error(t, err)
	gwerr, ok := gwerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, gwerrors.KindTransaction, gwerr.Kind)
}

func TestConcurrentUseOfSameTransactionIsContended(t *testing.T) {
	r := New()
	defer r.Close()

	db, tx := openTx(t)
	defer db.Close()

	id := r.Begin("conn1", backend.SQLite, tx, 0, func() {})

	started := make(chan struct{})
	proceed := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- r.Use(context.Background(), id, func(ctx context.Context, tx *sql.Tx) error {
			close(started)
			<-proceed
			return nil
		})
	}()
	<-started

	err := r.Use(context.Background(), id, func(ctx context.Context, tx *sql.Tx) error { return nil })
	require.Error(t, err)
	gwerr, ok := gwerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, gwerrors.KindTransaction, gwerr.Kind)

	close(proceed)
	require.NoError(t, <-done)
	require.NoError(t, r.Rollback(id))
}

func TestExpiredTransactionIsRejectedAndRolledBack(t *testing.T) {
	r := New()
	defer r.Close()

	db, tx := openTx(t)
	defer db.Close()

	var released bool
	id := r.Begin("conn1", backend.SQLite, tx, MinTimeout, func() { released = true })
	time.Sleep(MinTimeout + 10*time.Millisecond)

	err := r.Use(context.Background(), id, func(ctx context.Context, tx *sql.Tx) error { return nil })
	require.Error(t, err)
	assert.True(t, released)

	_, ok := r.lookup(id)
	assert.False(t, ok)
}

func TestReaperExpiresIdleTransactions(t *testing.T) {
	r := &Registry{txs: map[string]*transaction{}, stopCh: make(chan struct{})}

	db, tx := openTx(t)
	defer db.Close()

	var released bool
	id := r.Begin("conn1", backend.SQLite, tx, MinTimeout, func() { released = true })
	time.Sleep(MinTimeout + 10*time.Millisecond)

	r.reapOnce()

	assert.True(t, released)
	_, ok := r.lookup(id)
	assert.False(t, ok)
}

func TestListReportsOpenTransactions(t *testing.T) {
	r := New()
	defer r.Close()

	db, tx := openTx(t)
	defer db.Close()

	id := r.Begin("conn1", backend.Postgres, tx, 0, func() {})

	summaries := r.List()
	require.Len(t, summaries, 1)
	assert.Equal(t, id, summaries[0].ID)
	assert.Equal(t, "conn1", summaries[0].ConnID)
	assert.Equal(t, backend.Postgres, summaries[0].Backend)

	require.NoError(t, r.Rollback(id))
}
