// Package calibre reads a Calibre library's metadata.db and projects it into
// LibraryBook values. Access is strictly read-only.
package calibre

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// MetadataFile is the database file name inside a library root.
const MetadataFile = "metadata.db"

const schemaProbe = `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'books'`

// Repository owns the read-only connection to one library's metadata.db.
type Repository struct {
	root   string
	conn   *sql.DB
	logger *slog.Logger
}

// OpenOption configures Open.
type OpenOption func(*openConfig)

type openConfig struct {
	readers int
	logger  *slog.Logger
}

// WithReaders sets how many pooled read-only connections the repository may
// hold at once. The default is one.
func WithReaders(n int) OpenOption {
	return func(c *openConfig) {
		if n > 0 {
			c.readers = n
		}
	}
}

// WithOpenLogger sets the logger used for skipped rows.
func WithOpenLogger(l *slog.Logger) OpenOption {
	return func(c *openConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// MetadataPath returns <root>/metadata.db.
func MetadataPath(root string) string {
	return filepath.Join(root, MetadataFile)
}

// Open opens <root>/metadata.db read-only. Any failure is a *ConnectionError.
func Open(root string, opts ...OpenOption) (*Repository, error) {
	cfg := openConfig{readers: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	if root == "" {
		return nil, &ConnectionError{Root: root, Err: errors.New("library root is empty")}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &ConnectionError{Root: root, Err: err}
	}
	dbPath := MetadataPath(abs)
	info, err := os.Stat(dbPath)
	if err != nil {
		return nil, &ConnectionError{Root: root, Err: err}
	}
	if info.IsDir() {
		return nil, &ConnectionError{Root: root, Err: fmt.Errorf("%s is a directory", dbPath)}
	}

	conn, err := sql.Open("sqlite3", readOnlyDSN(dbPath))
	if err != nil {
		return nil, &ConnectionError{Root: root, Err: err}
	}
	conn.SetMaxOpenConns(cfg.readers)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, &ConnectionError{Root: root, Err: err}
	}
	// The header is only read on first access; this rejects non-SQLite files.
	// An empty file is a valid empty database, so also require the books table.
	var n int
	if err := conn.QueryRow(schemaProbe).Scan(&n); err != nil {
		conn.Close()
		return nil, &ConnectionError{Root: root, Err: err}
	}
	if n == 0 {
		conn.Close()
		return nil, &ConnectionError{Root: root, Err: ErrNoCalibreSchema}
	}

	return &Repository{root: abs, conn: conn, logger: cfg.logger}, nil
}

func readOnlyDSN(path string) string {
	q := url.Values{}
	q.Set("mode", "ro")
	q.Set("_query_only", "true")
	q.Set("_busy_timeout", "5000")
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: q.Encode()}
	return u.String()
}

// Root returns the absolute library root.
func (r *Repository) Root() string {
	return r.root
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.conn.Close()
}

// Columns maps a statement's result column names to their ordinals.
type Columns map[string]int

func resolveColumns(names []string) Columns {
	cols := make(Columns, len(names))
	for i, name := range names {
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

// Row is one result row with its statement's resolved columns.
type Row struct {
	cols   Columns
	values []any
}

// RowMapper converts a Row into a domain value. Returning an error skips the
// row.
type RowMapper[T any] func(Row) (T, error)

// Query runs a read-only statement and maps every row with mapper. Rows the
// mapper rejects are dropped. Statement failures are *QueryError. A statement
// with no rows yields an empty, non-nil slice.
func Query[T any](ctx context.Context, r *Repository, query string, mapper RowMapper[T], args ...any) ([]T, error) {
	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	cols := resolveColumns(names)

	out := []T{}
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryError{Query: query, Err: err}
		}
		v, err := mapper(Row{cols: cols, values: values})
		if err != nil {
			r.logger.Debug("calibre: row skipped",
				slog.String("query", query),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	return out, nil
}
