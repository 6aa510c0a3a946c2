package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/wansing/buzz/core"
)

// classify wraps err into a *core.StoreError, except for sql.ErrNoRows and context errors.
func classify(err error, op string) error {

	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNoDocument
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Wrap(err, op)
	}

	var kind = core.StorageFailure

	var sqliteErr sqlite3.Error
	var mysqlErr *mysql.MySQLError
	var pqErr *pq.Error

	switch {
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, mysql.ErrInvalidConn), errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, sql.ErrConnDone):
		kind = core.ConnectionFailure
	case errors.As(err, &sqliteErr):
		switch sqliteErr.Code {
		case sqlite3.ErrConstraint, sqlite3.ErrBusy, sqlite3.ErrLocked:
			kind = core.WriteConflict
		case sqlite3.ErrCantOpen:
			kind = core.ConnectionFailure
		}
	case errors.As(err, &mysqlErr):
		switch mysqlErr.Number {
		case 1062, 1213: // duplicate entry, deadlock
			kind = core.WriteConflict
		case 1205: // lock wait timeout
			kind = core.Timeout
		}
	case errors.As(err, &pqErr):
		switch {
		case pqErr.Code == "23505", pqErr.Code == "40001", pqErr.Code == "40P01": // unique violation, serialization failure, deadlock
			kind = core.WriteConflict
		case pqErr.Code == "57014": // query canceled
			kind = core.Timeout
		case pqErr.Code.Class() == "08":
			kind = core.ConnectionFailure
		}
	}

	return &core.StoreError{
		Kind: kind,
		Err:  errors.Wrap(err, op),
	}
}
