// SPDX-License-Identifier: Apache-2.0

package backend

import (
	// Driver registration side effects, one per supported backend. Chosen
	// to match the drivers already proven out in the reference pack:
	// modernc.org/sqlite (pure Go, no cgo) for SQLite, lib/pq for
	// PostgreSQL, go-sql-driver/mysql for MySQL.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)
