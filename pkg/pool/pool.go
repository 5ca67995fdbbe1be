// SPDX-License-Identifier: Apache-2.0

// Package pool is the Lazy Database Pool Manager (§4.E): one *sql.DB per
// database name, created on first use and reclaimed after sitting idle.
// Grounded directly on skeema's Instance.connectionPool map[string]*sqlx.DB
// guarded by *sync.RWMutex (instance.go's Connect method); the
// single-flight-creation / reference-counted-idle-reap design generalizes
// that map into per-database Entry values with active_count/last_idle_at,
// and adds the background reaper skeema's explicit Instance.CloseAll
// teardown doesn't have.
package pool

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sqlgateway/core/pkg/gwerrors"
)

const (
	// DefaultIdleThreshold is how long a pool must sit at active_count=0
	// before the reaper removes it (§4.E).
	DefaultIdleThreshold = 10 * time.Minute
	// DefaultReapInterval is how often the reaper scans, bounded at ≤1min
	// by §4.E.
	DefaultReapInterval = 1 * time.Minute
)

type creationState int

const (
	stateCreating creationState = iota
	stateReady
	stateFailed
)

// entry is a pool slot for one database name.
type entry struct {
	db          *sql.DB
	activeCount int32
	lastIdleAt  time.Time
	state       creationState
	creationErr error
	done        chan struct{}
}

func (e *entry) idle() bool {
	return atomic.LoadInt32(&e.activeCount) == 0
}

// Opener opens a *sql.DB for the given database name. Implementations
// typically close over a driver name and a DSN template (see
// pkg/registry, which builds one per server-level descriptor).
type Opener func(ctx context.Context, database string) (*sql.DB, error)

// Manager owns the per-database pool map for one server-level connection.
type Manager struct {
	open          Opener
	idleThreshold time.Duration
	reapInterval  time.Duration

	mu      sync.Mutex
	entries map[string]*entry

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewManager builds a Manager that opens pools via open. Starts the
// background reaper immediately.
func NewManager(open Opener) *Manager {
	m := &Manager{
		open:          open,
		idleThreshold: DefaultIdleThreshold,
		reapInterval:  DefaultReapInterval,
		entries:       map[string]*entry{},
		stopCh:        make(chan struct{}),
	}
	m.wg.Add(1)
	go m.runReaper()
	return m
}

// Lease is a scope-bound handle over one database's pool. Release must be
// called on every exit path, including panics (§3's Pool lease invariant).
type Lease struct {
	mgr      *Manager
	database string
	entry    *entry
	released int32
}

// DB returns the underlying connection pool.
func (l *Lease) DB() *sql.DB {
	return l.entry.db
}

// Release decrements active_count, idempotently. Safe to call from a
// deferred statement even after an earlier explicit Release.
func (l *Lease) Release() {
	if !atomic.CompareAndSwapInt32(&l.released, 0, 1) {
		return
	}
	l.mgr.release(l.database, l.entry)
}

// Acquire returns a Lease for database, creating its pool on first use.
// Concurrent Acquire calls for the same database that race a pool into
// existence observe exactly one creation attempt (§4.E single-flight) and
// receive the same outcome; a failed attempt is not cached, so the next
// caller to arrive after it retries from scratch.
func (m *Manager) Acquire(ctx context.Context, database string) (*Lease, error) {
	m.mu.Lock()
	e, ok := m.entries[database]
	if !ok {
		e = &entry{state: stateCreating, done: make(chan struct{})}
		m.entries[database] = e
		m.mu.Unlock()
		m.create(ctx, database, e)
		return m.finish(database, e)
	}
	if e.state == stateCreating {
		m.mu.Unlock()
		<-e.done
		return m.finish(database, e)
	}

	// Ready: the increment below happens while the reaper would need the
	// same map lock to observe/delete this entry, so acquisition observed
	// here can never race a concurrent reap (§4.E Ordering).
	atomic.AddInt32(&e.activeCount, 1)
	e.lastIdleAt = time.Time{}
	m.mu.Unlock()
	return &Lease{mgr: m, database: database, entry: e}, nil
}

// create performs pool creation for a newly inserted "creating" entry,
// outside the map lock, then publishes the outcome by closing e.done.
func (m *Manager) create(ctx context.Context, database string, e *entry) {
	db, err := m.open(ctx, database)

	m.mu.Lock()
	if err != nil {
		e.state = stateFailed
		e.creationErr = gwerrors.PoolCreationFailed(database, err)
	} else {
		e.db = db
		e.state = stateReady
		e.lastIdleAt = time.Time{}
	}
	close(e.done)
	m.mu.Unlock()
}

// finish converts a just-completed creation (observed either by the
// creator or by a waiter on e.done) into a Lease or its error. A failed
// entry is removed so the next distinct caller retries from scratch.
func (m *Manager) finish(database string, e *entry) (*Lease, error) {
	if e.state == stateFailed {
		m.mu.Lock()
		if cur, stillThere := m.entries[database]; stillThere && cur == e {
			delete(m.entries, database)
		}
		m.mu.Unlock()
		return nil, e.creationErr
	}

	atomic.AddInt32(&e.activeCount, 1)
	m.mu.Lock()
	e.lastIdleAt = time.Time{}
	m.mu.Unlock()
	return &Lease{mgr: m, database: database, entry: e}, nil
}

// release decrements active_count outside the map lock, then — only if a
// concurrent Acquire hasn't already bumped it back up by the time the lock
// is taken — marks the entry idle. Re-reading active_count under the same
// lock Acquire's ready-path uses to clear last_idle_at is what prevents a
// release from stamping an entry idle out from under a racing acquire
// (§4.E Ordering).
func (m *Manager) release(database string, e *entry) {
	if atomic.AddInt32(&e.activeCount, -1) != 0 {
		return
	}
	m.mu.Lock()
	if atomic.LoadInt32(&e.activeCount) == 0 {
		e.lastIdleAt = time.Now()
	}
	m.mu.Unlock()
}

func (m *Manager) runReaper() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.reapOnce()
		}
	}
}

func (m *Manager) reapOnce() {
	now := time.Now()

	m.mu.Lock()
	var toClose []*sql.DB
	for name, e := range m.entries {
		if e.state != stateReady || !e.idle() || e.lastIdleAt.IsZero() {
			continue
		}
		if now.Sub(e.lastIdleAt) >= m.idleThreshold {
			toClose = append(toClose, e.db)
			delete(m.entries, name)
		}
	}
	m.mu.Unlock()

	for _, db := range toClose {
		if err := db.Close(); err != nil {
			log.WithError(err).Warn("pool: error closing reaped database pool")
		}
	}
}

// Close stops the reaper and closes every pool currently held. Creation in
// flight is allowed to finish; its result is closed immediately.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()

	m.mu.Lock()
	entries := m.entries
	m.entries = map[string]*entry{}
	m.mu.Unlock()

	var firstErr error
	for _, e := range entries {
		if e.state == stateCreating {
			<-e.done
		}
		if e.db != nil {
			if err := e.db.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
