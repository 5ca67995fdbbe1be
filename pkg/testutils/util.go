// SPDX-License-Identifier: Apache-2.0

// Package testutils starts real backend containers for integration tests
// that want more than SQLite's in-process fidelity — pkg/registry and
// pkg/pool's pool-per-database behavior only really proves itself against a
// server-level backend.
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	mysqlcontainer "github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultPostgresVersion = "15.3"
	defaultMySQLVersion    = "8.0"
)

// PostgresContainer is a running Postgres instance plus a DSN naming its
// default database (a direct DSN; strip the path for the server-level form).
type PostgresContainer struct {
	DSN string

	ctr *postgres.PostgresContainer
}

// StartPostgres launches a Postgres container and returns a handle to it.
// Callers must call Close in a cleanup.
func StartPostgres(ctx context.Context) (*PostgresContainer, error) {
	version := os.Getenv("POSTGRES_VERSION")
	if version == "" {
		version = defaultPostgresVersion
	}

	waitForLogs := wait.
		ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(30 * time.Second)

	ctr, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:"+version),
		testcontainers.WithWaitStrategy(waitForLogs),
	)
	if err != nil {
		return nil, fmt.Errorf("starting postgres container: %w", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("reading postgres connection string: %w", err)
	}

	return &PostgresContainer{DSN: dsn, ctr: ctr}, nil
}

// Close terminates the container.
func (c *PostgresContainer) Close(ctx context.Context) error {
	return c.ctr.Terminate(ctx)
}

// NewDatabase creates a fresh, randomly named database inside c and returns
// a direct DSN naming it (the database appears as the URL path).
func (c *PostgresContainer) NewDatabase(ctx context.Context) (string, error) {
	admin, err := sql.Open("postgres", c.DSN)
	if err != nil {
		return "", err
	}
	defer admin.Close()

	name := randomDBName()
	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return "", fmt.Errorf("creating database %s: %w", name, err)
	}

	u, err := url.Parse(c.DSN)
	if err != nil {
		return "", err
	}
	u.Path = "/" + name
	return u.String(), nil
}

// MySQLContainer is a running MySQL instance plus the server-level DSN
// needed to open new databases against it.
type MySQLContainer struct {
	DSN string

	ctr *mysqlcontainer.MySQLContainer
}

// StartMySQL launches a MySQL container and returns a handle to it. DSN is
// built in the gateway's own mysql:// connspec grammar, not the driver-native
// DSN the container's own ConnectionString method returns, so it can be fed
// straight into connspec.Parse.
func StartMySQL(ctx context.Context) (*MySQLContainer, error) {
	version := os.Getenv("MYSQL_VERSION")
	if version == "" {
		version = defaultMySQLVersion
	}

	const user, password, database = "gateway", "gateway", "gateway"

	ctr, err := mysqlcontainer.RunContainer(ctx,
		testcontainers.WithImage("mysql:"+version),
		mysqlcontainer.WithDatabase(database),
		mysqlcontainer.WithUsername(user),
		mysqlcontainer.WithPassword(password),
	)
	if err != nil {
		return nil, fmt.Errorf("starting mysql container: %w", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading mysql container host: %w", err)
	}
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	if err != nil {
		return nil, fmt.Errorf("reading mysql container port: %w", err)
	}

	dsn := fmt.Sprintf("mysql://%s:%s@%s:%s/", user, password, host, port.Port())
	return &MySQLContainer{DSN: dsn, ctr: ctr}, nil
}

// Close terminates the container.
func (c *MySQLContainer) Close(ctx context.Context) error {
	return c.ctr.Terminate(ctx)
}

// Skippable reports whether container-backed integration tests should run
// at all; they're opt-in since they need a Docker daemon.
func Skippable(t *testing.T) {
	t.Helper()
	if os.Getenv("GATEWAY_INTEGRATION") == "" {
		t.Skip("set GATEWAY_INTEGRATION=1 to run container-backed integration tests")
	}
}
