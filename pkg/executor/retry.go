// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/lib/pq"

	"github.com/sqlgateway/core/pkg/backend"
)

const (
	pgLockNotAvailable pq.ErrorCode = "55P03"
	maxBackoffDuration              = 1 * time.Minute
	backoffInterval                 = 1 * time.Second
)

// withLockRetry generalizes pkg/db.RDB's Postgres-only lock_timeout retry
// into a per-backend policy (§4.G): only Postgres's 55P03 lock_not_available
// is retried with jittered backoff; MySQL and SQLite driver errors are
// returned straight through, since neither exposes an equivalent transient
// lock-wait error a blind retry would help with.
func withLockRetry(ctx context.Context, k backend.Kind, f func() (*sql.Rows, error)) (*sql.Rows, error) {
	if k != backend.Postgres {
		return f()
	}

	b := backoff.New(maxBackoffDuration, backoffInterval)
	for {
		rows, err := f()
		if err == nil || !isLockNotAvailable(err) {
			return rows, err
		}
		if err := sleepCtx(ctx, b.Duration()); err != nil {
			return nil, err
		}
	}
}

func withLockRetryResult(ctx context.Context, k backend.Kind, f func() (sql.Result, error)) (sql.Result, error) {
	if k != backend.Postgres {
		return f()
	}

	b := backoff.New(maxBackoffDuration, backoffInterval)
	for {
		res, err := f()
		if err == nil || !isLockNotAvailable(err) {
			return res, err
		}
		if err := sleepCtx(ctx, b.Duration()); err != nil {
			return nil, err
		}
	}
}

func isLockNotAvailable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgLockNotAvailable
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
