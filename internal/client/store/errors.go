package store

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"

	"github.com/dmitrijs2005/studiosync/internal/dbx"
)

// StorageError describes a failed statement against the local store.
type StorageError struct {
	Query       string
	DBError     string
	DriverError string
	Err         error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s", e.DBError)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError classifies err. The query text is taken from a wrapped
// *dbx.QueryError when there is one.
func NewStorageError(err error) *StorageError {
	se := &StorageError{DBError: err.Error(), Err: err}

	var qe *dbx.QueryError
	if errors.As(err, &qe) {
		se.Query = qe.Query
		se.DBError = qe.Err.Error()
	}

	var de *sqlite.Error
	if errors.As(err, &de) {
		se.DriverError = fmt.Sprintf("sqlite code %d", de.Code())
	}
	return se
}

// LogArgs returns the attributes used when logging e.
func (e *StorageError) LogArgs() []any {
	return []any{"query", e.Query, "db_error", e.DBError, "driver_error", e.DriverError}
}
