// Package sqldb implements core.DocumentDB over an SQL database. Each collection is a table of JSON documents keyed by their id.
package sqldb

import (
	"github.com/jmoiron/sqlx"
)

// mustPrepare rebinds the ?-placeholders for the driver and prepares the statement. It panics on error, so use it during startup only.
func mustPrepare(db *sqlx.DB, query string) *sqlx.Stmt {
	stmt, err := db.Preparex(db.Rebind(query))
	if err != nil {
		panic(err)
	}
	return stmt
}

// validTableName allows lower case letters, digits and underscores only, because table names can't be placeholders.
func validTableName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, c := range name {
		if !('a' <= c && c <= 'z' || '0' <= c && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}
