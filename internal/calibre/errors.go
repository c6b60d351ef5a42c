package calibre

import (
	"errors"
	"fmt"
)

// Row mapping failures. A mapper returning one of these skips the row.
var (
	ErrMissingColumn  = errors.New("missing column")
	ErrNullValue      = errors.New("null value")
	ErrUnexpectedType = errors.New("unexpected column type")
)

// ErrNoCalibreSchema is wrapped by the *ConnectionError Open returns for a
// SQLite file without a books table.
var ErrNoCalibreSchema = errors.New("not a calibre library: no books table")

// ConnectionError reports a library root whose metadata database cannot be
// opened. It is fatal to a library load.
type ConnectionError struct {
	Root string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("calibre: open library %q: %v", e.Root, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError reports a statement that failed to prepare or execute.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("calibre: query %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
