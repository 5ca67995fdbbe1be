// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openMemDB(_ context.Context, _ string) (*sql.DB, error) {
	return sql.Open("sqlite", ":memory:")
}

func TestAcquireCreatesExactlyOnePoolUnderConcurrency(t *testing.T) {
	var opens int32
	open := func(ctx context.Context, database string) (*sql.DB, error) {
		atomic.AddInt32(&opens, 1)
		time.Sleep(10 * time.Millisecond)
		return sql.Open("sqlite", ":memory:")
	}

	m := NewManager(open)
	defer m.Close()

	const n = 20
	var wg sync.WaitGroup
	leases := make([]*Lease, n)
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			l, err := m.Acquire(context.Background(), "orders")
			leases[i] = l
			errs[i] = err
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&opens))
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, leases[i])
		assert.Same(t, leases[0].DB(), leases[i].DB())
	}

	m.mu.Lock()
	e := m.entries["orders"]
	m.mu.Unlock()
	assert.EqualValues(t, n, atomic.LoadInt32(&e.activeCount))

	for _, l := range leases {
		l.Release()
	}
	assert.EqualValues(t, 0, atomic.LoadInt32(&e.activeCount))
}

func TestAcquireFailureIsNotCachedAndRetries(t *testing.T) {
	var calls int32
	boom := errors.New("connection refused")
	open := func(ctx context.Context, database string) (*sql.DB, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, boom
		}
		return sql.Open("sqlite", ":memory:")
	}

	m := NewManager(open)
	defer m.Close()

	_, err := m.Acquire(context.Background(), "orders")
	require.Error(t, err)

	m.mu.Lock()
	_, stillThere := m.entries["orders"]
	m.mu.Unlock()
	assert.False(t, stillThere, "a failed creation attempt must not leave a cached entry behind")

	l, err := m.Acquire(context.Background(), "orders")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	l.Release()
}

func TestConcurrentWaitersOnFailedCreationAllObserveTheSameError(t *testing.T) {
	boom := errors.New("timeout")
	release := make(chan struct{})
	var calls int32
	open := func(ctx context.Context, database string) (*sql.DB, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return nil, boom
	}

	m := NewManager(open)
	defer m.Close()

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Acquire(context.Background(), "orders")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for i := 0; i < n; i++ {
		require.Error(t, errs[i])
	}
}

func TestReleaseMarksEntryIdleAndReaperClosesAfterThreshold(t *testing.T) {
	m := NewManager(openMemDB)
	m.idleThreshold = 20 * time.Millisecond
	defer m.Close()

	l, err := m.Acquire(context.Background(), "orders")
	require.NoError(t, err)
	db := l.DB()
	l.Release()

	m.mu.Lock()
	e := m.entries["orders"]
	m.mu.Unlock()
	require.NotNil(t, e)
	assert.True(t, e.idle())
	assert.False(t, e.lastIdleAt.IsZero())

	time.Sleep(30 * time.Millisecond)
	m.reapOnce()

	m.mu.Lock()
	_, stillThere := m.entries["orders"]
	m.mu.Unlock()
	assert.False(t, stillThere)

	assert.Error(t, db.Ping())
}

func TestReaperDoesNotCloseAPoolAcquiredDuringItsIdleWindow(t *testing.T) {
	m := NewManager(openMemDB)
	m.idleThreshold = 20 * time.Millisecond
	defer m.Close()

	l1, err := m.Acquire(context.Background(), "orders")
	require.NoError(t, err)
	l1.Release()

	time.Sleep(25 * time.Millisecond)

	l2, err := m.Acquire(context.Background(), "orders")
	require.NoError(t, err)

	m.reapOnce()

	m.mu.Lock()
	_, stillThere := m.entries["orders"]
	m.mu.Unlock()
	assert.True(t, stillThere, "an entry with active_count > 0 must never be reaped")

	assert.NoError(t, l2.DB().Ping())
	l2.Release()
}

func TestLeaseReleaseIsIdempotent(t *testing.T) {
	m := NewManager(openMemDB)
	defer m.Close()

	l, err := m.Acquire(context.Background(), "orders")
	require.NoError(t, err)

	m.mu.Lock()
	e := m.entries["orders"]
	m.mu.Unlock()

	l.Release()
	l.Release()
	l.Release()

	assert.EqualValues(t, 0, atomic.LoadInt32(&e.activeCount))
}

func TestCloseClosesReadyPools(t *testing.T) {
	m := NewManager(openMemDB)
	l, err := m.Acquire(context.Background(), "orders")
	require.NoError(t, err)
	db := l.DB()
	l.Release()

	require.NoError(t, m.Close())
	assert.Error(t, db.Ping())
}
