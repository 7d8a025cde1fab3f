package db

import "database/sql"

// DB wraps the raw connection pool so repositories take a single
// dependency and tests can swap the Store interface instead.
type DB struct {
	*sql.DB
}
