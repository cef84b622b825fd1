package dbx

import "fmt"

// QueryError carries the statement that failed next to the driver error so
// that callers can log both.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// WrapQuery returns nil when err is nil, otherwise a *QueryError.
func WrapQuery(query string, err error) error {
	if err == nil {
		return nil
	}
	return &QueryError{Query: query, Err: err}
}
