// SPDX-License-Identifier: Apache-2.0

// Package registry is the Connection Registry (§4.D): it holds named
// connection descriptors and resolves a request's {connection_id,
// database?} into a leased backend handle, delegating to pkg/pool for
// server-level connections that need a per-database pool.
//
// Grounded on the teacher's internal/connstr + cmd-level connection setup,
// generalized from "one Postgres DSN per invocation" into a registry of
// many named, independently-backed connections.
package registry

import (
	"context"
	"database/sql"
	"sync"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/connspec"
	"github.com/sqlgateway/core/pkg/gwerrors"
	"github.com/sqlgateway/core/pkg/pool"
)

// Descriptor is the immutable, user-visible view of a registered
// connection (§3's Connection descriptor).
type Descriptor struct {
	ID          string
	Backend     backend.Kind
	Writable    bool
	ServerLevel bool
	Database    string
}

// entry is the registry's internal handle: exactly one of direct/pooled is
// set, mirroring the direct-vs-server-level split of §3.
type entry struct {
	desc Descriptor
	spec connspec.Spec

	direct *sql.DB
	pooled *pool.Manager
}

// Lease is a scope-bound handle to a backend connection, returned by
// Resolve. Release must be called on every exit path, including panics
// (§3's Pool lease invariant propagates up to here).
type Lease struct {
	DB       *sql.DB
	Backend  backend.Kind
	Writable bool
	ConnID   string

	release func()
}

// Release returns the underlying pool lease, if any. Idempotent and safe
// to call multiple times or defer unconditionally.
func (l *Lease) Release() {
	if l.release != nil {
		l.release()
	}
}

// Registry holds every registered connection descriptor for the process
// lifetime. Insertion only happens at startup (§5): the map is read-mostly,
// so Resolve takes a read lock and Register takes a write lock held for
// the full (one-time, blocking) connection setup.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: map[string]*entry{}}
}

// Register parses and opens spec, installing it under spec.ID. Duplicate
// ids and backend initialization failures are rejected (§4.D).
func (r *Registry) Register(ctx context.Context, spec connspec.Spec) (Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[spec.ID]; exists {
		return Descriptor{}, gwerrors.DuplicateConnection(spec.ID)
	}

	desc := Descriptor{
		ID:          spec.ID,
		Backend:     spec.Backend,
		Writable:    spec.Writable,
		ServerLevel: spec.ServerLevel,
		Database:    spec.Database,
	}

	e := &entry{desc: desc, spec: spec}

	if spec.ServerLevel {
		e.pooled = pool.NewManager(func(ctx context.Context, database string) (*sql.DB, error) {
			dsn, err := spec.DSNForDatabase(database)
			if err != nil {
				return nil, err
			}
			return openAndPing(ctx, spec.Backend, dsn)
		})
	} else {
		db, err := openAndPing(ctx, spec.Backend, spec.DSN)
		if err != nil {
			return Descriptor{}, err
		}
		e.direct = db
	}

	r.entries[spec.ID] = e
	return desc, nil
}

func openAndPing(ctx context.Context, kind backend.Kind, dsn string) (*sql.DB, error) {
	db, err := sql.Open(kind.DriverName(), dsn)
	if err != nil {
		return nil, gwerrors.PoolCreationFailed(dsn, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, gwerrors.PoolCreationFailed(dsn, err)
	}
	return db, nil
}

// Get returns the Descriptor registered under id.
func (r *Registry) Get(id string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return Descriptor{}, gwerrors.UnknownConnection(id)
	}
	return e.desc, nil
}

// Resolve implements §4.D steps 2-4 of lease resolution: transaction_id
// short-circuiting (step 1) is the caller's responsibility — a request
// carrying a transaction_id should go straight to pkg/txregistry.Use and
// never reach Resolve at all, since a transaction pins its own lease for
// its whole lifetime.
func (r *Registry) Resolve(ctx context.Context, connID, database string) (*Lease, error) {
	r.mu.RLock()
	e, ok := r.entries[connID]
	r.mu.RUnlock()
	if !ok {
		return nil, gwerrors.UnknownConnection(connID)
	}

	if !e.desc.ServerLevel {
		if database != "" && database != e.desc.Database {
			return nil, gwerrors.DatabaseOverrideNotAllowed(connID, database)
		}
		return &Lease{DB: e.direct, Backend: e.desc.Backend, Writable: e.desc.Writable, ConnID: connID}, nil
	}

	if database == "" {
		// Server-scope lease: a driver-native connection with no database
		// selected. Schema/data operations that require one must fail
		// Schema(database_required); Resolve itself has no opinion on that.
		db, err := e.pooled.Acquire(ctx, "")
		if err != nil {
			return nil, err
		}
		return &Lease{DB: db.DB(), Backend: e.desc.Backend, Writable: e.desc.Writable, ConnID: connID, release: db.Release}, nil
	}

	lease, err := e.pooled.Acquire(ctx, database)
	if err != nil {
		return nil, err
	}
	return &Lease{DB: lease.DB(), Backend: e.desc.Backend, Writable: e.desc.Writable, ConnID: connID, release: lease.Release}, nil
}

// List returns every registered connection's Descriptor, in no particular
// order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		descs = append(descs, e.desc)
	}
	return descs
}

// Close tears down every registered connection's pool(s).
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, e := range r.entries {
		var err error
		if e.pooled != nil {
			err = e.pooled.Close()
		} else if e.direct != nil {
			err = e.direct.Close()
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
