// SPDX-License-Identifier: Apache-2.0

// Package txregistry is the stateful Transaction Registry (§4.F): it hands
// out opaque transaction ids for interactive begin/use/commit/rollback
// sequences issued across separate requests, expires ones left open too
// long, and serializes concurrent use of the same id rather than letting
// requests interleave statements against one *sql.Tx.
//
// Grounded on pkg/db.RDB's retry-on-contention shape generalized from a
// single Postgres lock_timeout code into a per-transaction mutex: here the
// "lock" being contended is the transaction entry itself, and contention is
// reported to the caller (gwerrors.TransactionContention) rather than
// retried, since two requests racing the same interactive transaction is a
// caller bug, not a transient backend condition.
package txregistry

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/gwerrors"
)

const (
	DefaultTimeout = 60 * time.Second
	MinTimeout     = 1 * time.Second
	MaxTimeout     = 300 * time.Second
	reapInterval   = 5 * time.Second
)

type state int

const (
	stateActive state = iota
	stateFinalized
)

// transaction is one open interactive transaction. mu serializes use,
// commit, and rollback against the underlying *sql.Tx, and against the
// background reaper's expiry check.
type transaction struct {
	id        string
	connID    string
	backend   backend.Kind
	tx        *sql.Tx
	release   func()
	startedAt time.Time
	deadline  time.Time

	mu    sync.Mutex
	state state
}

// Summary is the read-only view of a transaction returned by List.
type Summary struct {
	ID        string
	ConnID    string
	Backend   backend.Kind
	StartedAt time.Time
	Deadline  time.Time
}

// Registry tracks every open interactive transaction.
type Registry struct {
	mu  sync.Mutex
	txs map[string]*transaction

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New starts a Registry and its background expiry sweep.
func New() *Registry {
	r := &Registry{
		txs:    map[string]*transaction{},
		stopCh: make(chan struct{}),
	}
	r.wg.Add(1)
	go r.runReaper()
	return r
}

// ClampTimeout normalizes a requested timeout into §3/§4.F's [1s, 300s]
// bound, substituting the 60s default when d is zero.
func ClampTimeout(d time.Duration) time.Duration {
	if d == 0 {
		return DefaultTimeout
	}
	if d < MinTimeout {
		return MinTimeout
	}
	if d > MaxTimeout {
		return MaxTimeout
	}
	return d
}

// Begin registers a new transaction wrapping an already-started *sql.Tx.
// release is called exactly once, when the transaction is finalized
// (committed, rolled back, or expired) — typically the owning pool Lease's
// Release method.
func (r *Registry) Begin(connID string, kind backend.Kind, tx *sql.Tx, timeout time.Duration, release func()) string {
	id := uuid.NewString()
	now := time.Now()

	t := &transaction{
		id:        id,
		connID:    connID,
		backend:   kind,
		tx:        tx,
		release:   release,
		startedAt: now,
		deadline:  now.Add(ClampTimeout(timeout)),
		state:     stateActive,
	}

	r.mu.Lock()
	r.txs[id] = t
	r.mu.Unlock()
	return id
}

// Use runs f against the transaction named by id, holding its per-entry
// lock for the duration so a second concurrent request against the same id
// observes TransactionContention instead of interleaving statements.
func (r *Registry) Use(ctx context.Context, id string, f func(context.Context, *sql.Tx) error) error {
	t, ok := r.lookup(id)
	if !ok {
		return gwerrors.TransactionNotFound(id)
	}

	if !t.mu.TryLock() {
		return gwerrors.TransactionContention(id)
	}
	defer t.mu.Unlock()

	if t.state != stateActive {
		return gwerrors.TransactionNotFound(id)
	}
	if time.Now().After(t.deadline) {
		r.finalizeLocked(t, true)
		return gwerrors.TransactionExpired(id)
	}

	return f(ctx, t.tx)
}

// Commit commits and finalizes the transaction named by id.
func (r *Registry) Commit(id string) error {
	return r.finalize(id, func(tx *sql.Tx) error { return tx.Commit() })
}

// Rollback rolls back and finalizes the transaction named by id.
func (r *Registry) Rollback(id string) error {
	return r.finalize(id, func(tx *sql.Tx) error { return tx.Rollback() })
}

func (r *Registry) finalize(id string, op func(*sql.Tx) error) error {
	t, ok := r.lookup(id)
	if !ok {
		return gwerrors.TransactionNotFound(id)
	}

	if !t.mu.TryLock() {
		return gwerrors.TransactionContention(id)
	}
	defer t.mu.Unlock()

	if t.state != stateActive {
		return gwerrors.TransactionNotFound(id)
	}
	if time.Now().After(t.deadline) {
		r.finalizeLocked(t, true)
		return gwerrors.TransactionExpired(id)
	}

	err := op(t.tx)
	r.finalizeLocked(t, false)
	return err
}

// finalizeLocked marks t finalized, rolls back t.tx when expired is true
// (commit/rollback callers pass false, having already ended it), runs the
// release callback and drops t from the registry. Callers must hold t.mu.
func (r *Registry) finalizeLocked(t *transaction, expired bool) {
	t.state = stateFinalized
	if expired {
		_ = t.tx.Rollback()
	}
	if t.release != nil {
		t.release()
	}

	r.mu.Lock()
	if cur, ok := r.txs[t.id]; ok && cur == t {
		delete(r.txs, t.id)
	}
	r.mu.Unlock()
}

// List returns a snapshot of every transaction still open. Entries
// currently locked by an in-flight Use/Commit/Rollback are reported as-is
// from their last known state, since acquiring their lock here would make
// List itself contend with ordinary traffic.
func (r *Registry) List() []Summary {
	r.mu.Lock()
	all := make([]*transaction, 0, len(r.txs))
	for _, t := range r.txs {
		all = append(all, t)
	}
	r.mu.Unlock()

	out := make([]Summary, 0, len(all))
	for _, t := range all {
		out = append(out, Summary{
			ID:        t.id,
			ConnID:    t.connID,
			Backend:   t.backend,
			StartedAt: t.startedAt,
			Deadline:  t.deadline,
		})
	}
	return out
}

// Lookup returns the immutable identity fields of the transaction named by
// id (connection id, backend) without taking its per-entry lock — callers
// that need to run a statement against it should go through Use instead.
func (r *Registry) Lookup(id string) (Summary, bool) {
	t, ok := r.lookup(id)
	if !ok {
		return Summary{}, false
	}
	return Summary{ID: t.id, ConnID: t.connID, Backend: t.backend, StartedAt: t.startedAt, Deadline: t.deadline}, true
}

func (r *Registry) lookup(id string) (*transaction, bool) {
	r.mu.Lock()
	t, ok := r.txs[id]
	r.mu.Unlock()
	return t, ok
}

// runReaper expires transactions past their deadline, skipping any entry
// currently locked by a live request rather than blocking on it (§4.F).
func (r *Registry) runReaper() {
	defer r.wg.Done()
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.reapOnce()
		}
	}
}

func (r *Registry) reapOnce() {
	r.mu.Lock()
	all := make([]*transaction, 0, len(r.txs))
	for _, t := range r.txs {
		all = append(all, t)
	}
	r.mu.Unlock()

	now := time.Now()
	for _, t := range all {
		if !t.mu.TryLock() {
			continue
		}
		if t.state == stateActive && now.After(t.deadline) {
			r.finalizeLocked(t, true)
		}
		t.mu.Unlock()
	}
}

// Close stops the background reaper and rolls back every still-open
// transaction.
func (r *Registry) Close() error {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()

	r.mu.Lock()
	all := make([]*transaction, 0, len(r.txs))
	for _, t := range r.txs {
		all = append(all, t)
	}
	r.mu.Unlock()

	var firstErr error
	for _, t := range all {
		t.mu.Lock()
		if t.state == stateActive {
			r.finalizeLocked(t, true)
		}
		t.mu.Unlock()
	}
	return firstErr
}
