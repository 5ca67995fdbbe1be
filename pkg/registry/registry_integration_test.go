// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/sqlgateway/core/pkg/connspec"
	"github.com/sqlgateway/core/pkg/testutils"
)

// serverLevel strips a container-issued DSN's database path, turning a
// direct connection string into the server-level form connspec.Parse
// expects (no path segment).
func serverLevel(t *testing.T, dsn string) string {
	t.Helper()
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	u.Path = ""
	return u.String()
}

// TestServerLevelPostgresResolvesOnePoolPerDatabase proves §4.D/§4.E against
// a real Postgres server, where pkg/pool's lazy per-database pool creation
// actually matters: SQLite has no server scope to multiplex.
func TestServerLevelPostgresResolvesOnePoolPerDatabase(t *testing.T) {
	testutils.Skippable(t)
	ctx := context.Background()

	pg, err := testutils.StartPostgres(ctx)
	require.NoError(t, err)
	defer pg.Close(ctx)

	dbADSN, err := pg.NewDatabase(ctx)
	require.NoError(t, err)
	dbAName := strings.TrimPrefix(mustParse(t, dbADSN).Path, "/")

	r := New()
	defer r.Close()

	spec, err := connspec.Parse(serverLevel(t, pg.DSN) + "&writable=true")
	require.NoError(t, err)
	spec.ID = "pg"
	desc, err := r.Register(ctx, spec)
	require.NoError(t, err)
	assert.True(t, desc.ServerLevel)

	lease1, err := r.Resolve(ctx, "pg", "postgres")
	require.NoError(t, err)
	lease2, err := r.Resolve(ctx, "pg", "postgres")
	require.NoError(t, err)
	assert.Same(t, lease1.DB, lease2.DB)

	leaseOther, err := r.Resolve(ctx, "pg", dbAName)
	require.NoError(t, err)
	assert.NotSame(t, lease1.DB, leaseOther.DB)

	lease1.Release()
	lease2.Release()
	leaseOther.Release()
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

// TestServerLevelMySQLResolvesDatabase proves the same resolution path
// against MySQL's server-level DSN shape (tcp(host:port)/db).
func TestServerLevelMySQLResolvesDatabase(t *testing.T) {
	testutils.Skippable(t)
	ctx := context.Background()

	my, err := testutils.StartMySQL(ctx)
	require.NoError(t, err)
	defer my.Close(ctx)

	r := New()
	defer r.Close()

	spec, err := connspec.Parse(my.DSN + "?writable=true")
	require.NoError(t, err)
	spec.ID = "my"
	desc, err := r.Register(ctx, spec)
	require.NoError(t, err)
	assert.True(t, desc.ServerLevel)

	lease, err := r.Resolve(ctx, "my", "gateway")
	require.NoError(t, err)
	require.NotNil(t, lease.DB)
	lease.Release()
}
