package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/lib/pq"
	"github.com/siherrmann/newsgraph/helper"
	"github.com/siherrmann/newsgraph/model"
)

// transientClasses are the SQLSTATE classes a retry can recover from
var transientClasses = []string{
	"08", // connection exception
	"53", // insufficient resources
	"57", // operator intervention (admin shutdown, query canceled)
}

var transientCodes = []pq.ErrorCode{
	"40001", // serialization_failure
	"40P01", // deadlock_detected
}

// wrapError turns a driver error into a PersistenceError.
// sql.ErrNoRows becomes model.ErrNotFound.
func wrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return helper.NewError(operation, model.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "P0002" {
		return helper.NewError(operation, errors.Join(model.ErrNotFound, err))
	}

	return &model.PersistenceError{
		Op:        operation,
		Transient: isTransient(err),
		Err:       err,
	}
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		for _, code := range transientCodes {
			if pqErr.Code == code {
				return true
			}
		}
		for _, class := range transientClasses {
			if string(pqErr.Code.Class()) == class {
				return true
			}
		}
	}
	return false
}
