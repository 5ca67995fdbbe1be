// SPDX-License-Identifier: Apache-2.0

// Package connspec parses the connection spec grammar of §6: an optional
// leading `id=` prefix followed by a URL whose scheme selects the backend,
// whose path presence/absence selects direct-vs-server-level, and whose
// `writable` query option controls write access. It generalizes the
// teacher's internal/connstr, which only knew how to splice a Postgres
// search_path option into a URL.
package connspec

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sqlgateway/core/pkg/backend"
	"github.com/sqlgateway/core/pkg/gwerrors"
)

// Spec is the parsed, normalized form of one connection spec string.
type Spec struct {
	ID          string
	Backend     backend.Kind
	ServerLevel bool
	Writable    bool
	// Database is the database/schema named in the path, or "" for a
	// server-level spec with no database selected.
	Database string
	// DSN is the driver-ready connection string for sql.Open, with the
	// gateway-only options (writable, id) stripped.
	DSN string

	// url is retained (server-level specs only) so DSNForDatabase can build
	// a per-database DSN without having to re-parse the spec string.
	url *url.URL
}

// DSNForDatabase builds a driver-ready DSN identical to DSN except that its
// database component is replaced by database. Used by pkg/registry to hand
// the lazy pool manager (pkg/pool) an Opener for a server-level connection
// (§4.D/§4.E): one Spec, many per-database pools.
func (s Spec) DSNForDatabase(database string) (string, error) {
	if s.url == nil {
		return "", gwerrors.InvalidSpec("DSNForDatabase requires a server-level spec")
	}
	switch s.Backend {
	case backend.Postgres:
		u := *s.url
		u.Path = "/" + database
		return stripGatewayOptions(&u).String(), nil
	case backend.MySQL:
		return mysqlDSN(s.url, database)
	default:
		return "", gwerrors.InvalidSpec(fmt.Sprintf("backend %q has no server-level database selection", s.Backend))
	}
}

// Parse parses one connection spec string per §6's grammar.
func Parse(raw string) (Spec, error) {
	raw = strings.TrimSpace(raw)

	var explicitID string
	if rest, ok := strings.CutPrefix(raw, "id="); ok {
		id, remainder, found := strings.Cut(rest, " ")
		if !found {
			return Spec{}, gwerrors.InvalidSpec("id= prefix must be followed by a space and the connection URL")
		}
		explicitID = id
		raw = strings.TrimSpace(remainder)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Spec{}, gwerrors.InvalidSpec(fmt.Sprintf("malformed connection URL: %s", err))
	}

	kind, err := schemeToBackend(u.Scheme)
	if err != nil {
		return Spec{}, err
	}

	writable := isTruthy(u.Query().Get("writable"))

	var database string
	var serverLevel bool
	var dsn string

	switch kind {
	case backend.SQLite:
		database = sqlitePath(u)
		dsn = database
	case backend.Postgres:
		database, serverLevel = pathDatabase(u)
		dsn = stripGatewayOptions(u).String()
	case backend.MySQL:
		database, serverLevel = pathDatabase(u)
		dsn, err = mysqlDSN(u, database)
		if err != nil {
			return Spec{}, err
		}
	}

	id := explicitID
	if id == "" {
		if database != "" {
			id = database
		} else {
			id = u.Host
		}
	}
	if id == "" {
		return Spec{}, gwerrors.InvalidSpec("could not derive a connection id: supply one with an id= prefix")
	}

	spec := Spec{
		ID:          id,
		Backend:     kind,
		ServerLevel: serverLevel,
		Writable:    writable,
		Database:    database,
		DSN:         dsn,
	}
	if serverLevel {
		spec.url = u
	}
	return spec, nil
}

func schemeToBackend(scheme string) (backend.Kind, error) {
	switch strings.ToLower(scheme) {
	case "sqlite":
		return backend.SQLite, nil
	case "postgres", "postgresql":
		return backend.Postgres, nil
	case "mysql":
		return backend.MySQL, nil
	default:
		return "", gwerrors.InvalidSpec(fmt.Sprintf("unrecognized connection scheme %q", scheme))
	}
}

func isTruthy(v string) bool {
	return strings.EqualFold(v, "true")
}

// pathDatabase extracts the database name from a server-style URL's path,
// reporting whether the spec is server-level (no path given).
func pathDatabase(u *url.URL) (database string, serverLevel bool) {
	path := strings.TrimPrefix(u.Path, "/")
	if path == "" {
		return "", true
	}
	return path, false
}

// sqlitePath resolves the file path a SQLite spec names. "sqlite::memory:"
// and "sqlite://./rel.db" and "sqlite:///abs.db" are all accepted.
func sqlitePath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	if u.Host != "" {
		return u.Host + u.Path
	}
	return u.Path
}

// stripGatewayOptions removes query options that are meaningful to the
// gateway but not to the backend driver (writable), returning a copy.
func stripGatewayOptions(u *url.URL) *url.URL {
	out := *u
	q := out.Query()
	q.Del("writable")
	out.RawQuery = q.Encode()
	return &out
}

// mysqlDSN converts a mysql:// URL into the go-sql-driver/mysql DSN format
// (user:pass@tcp(host:port)/dbname?param=val), which differs from the URL
// form lib/pq accepts directly.
func mysqlDSN(u *url.URL, database string) (string, error) {
	var b strings.Builder
	if u.User != nil {
		b.WriteString(u.User.String())
		b.WriteByte('@')
	}

	host := u.Host
	if host == "" {
		return "", gwerrors.InvalidSpec("mysql connection spec requires a host")
	}
	if !strings.Contains(host, ":") {
		host += ":3306"
	}
	b.WriteString("tcp(")
	b.WriteString(host)
	b.WriteString(")")

	b.WriteByte('/')
	b.WriteString(database)

	q := stripGatewayOptions(u).Query()
	if len(q) > 0 {
		b.WriteByte('?')
		b.WriteString(q.Encode())
	}
	return b.String(), nil
}

// ParseTimeout parses a timeout_s request field, clamping it into [1, 300]
// per §3's transaction timeout rule; an absent/zero value yields the
// default 60s (returned in seconds, leaving unit conversion to the caller).
func ParseTimeout(raw string, defaultSeconds, min, max int) (int, error) {
	if raw == "" {
		return defaultSeconds, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, gwerrors.InvalidSpec(fmt.Sprintf("invalid timeout_s value %q", raw))
	}
	if v == 0 {
		return defaultSeconds, nil
	}
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return v, nil
}
