package calibre

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/shelf/internal/testutil"
)

func openTestRepo(t *testing.T, root string) *Repository {
	t.Helper()
	repo, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestOpen_MissingDatabase(t *testing.T) {
	root := t.TempDir()
	_, err := Open(root)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("err = %v, want *ConnectionError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestOpen_EmptyRoot(t *testing.T) {
	_, err := Open("")
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("err = %v, want *ConnectionError", err)
	}
}

func TestOpen_NotADatabase(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, MetadataFile), []byte("definitely not sqlite, just some text padding it out past the header size"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(root)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("err = %v, want *ConnectionError", err)
	}
}

func TestOpen_EmptyFileIsNotALibrary(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, MetadataFile), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(root)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("err = %v, want *ConnectionError", err)
	}
	if !errors.Is(err, ErrNoCalibreSchema) {
		t.Errorf("err = %v, want wrapped ErrNoCalibreSchema", err)
	}
}

func TestOpen_DatabaseIsDirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, MetadataFile), 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := Open(root)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("err = %v, want *ConnectionError", err)
	}
}

func TestOpen_ReadOnly(t *testing.T) {
	root := testutil.NewLibrary(t, testutil.Book{Title: "A", Path: "x/A (1)"})
	repo := openTestRepo(t, root)

	if _, err := repo.conn.Exec(`DELETE FROM books`); err == nil {
		t.Fatal("write through repository connection should fail")
	}
}

func TestQuery_ResolvesColumnsByName(t *testing.T) {
	root := testutil.NewLibrary(t, testutil.Book{Title: "Dune", Path: "Frank Herbert/Dune (1)"})
	repo := openTestRepo(t, root)

	// Same columns, two different orders.
	for _, q := range []string{
		`SELECT id, title, path FROM books`,
		`SELECT path, title, id FROM books`,
	} {
		got, err := Query(context.Background(), repo, q, func(r Row) (string, error) {
			return r.String("title")
		})
		if err != nil {
			t.Fatalf("Query(%q): %v", q, err)
		}
		if len(got) != 1 || got[0] != "Dune" {
			t.Errorf("Query(%q) = %v, want [Dune]", q, got)
		}
	}
}

func TestQuery_SkipsRowsTheMapperRejects(t *testing.T) {
	root := testutil.NewLibrary(t,
		testutil.Book{Title: "Keep", Path: "a/Keep (1)", Sort: testutil.Ptr("Keep")},
		testutil.Book{Title: "Skip", Path: "a/Skip (2)"},
		testutil.Book{Title: "Also keep", Path: "a/Also keep (3)", Sort: testutil.Ptr("Also keep")},
	)
	repo := openTestRepo(t, root)

	got, err := Query(context.Background(), repo, `SELECT * FROM books`, func(r Row) (string, error) {
		return r.String("sort") // NULL for "Skip"
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0] != "Keep" || got[1] != "Also keep" {
		t.Errorf("got %v, want [Keep Also keep]", got)
	}
}

func TestQuery_MissingColumnSkipsRow(t *testing.T) {
	root := testutil.NewLibrary(t, testutil.Book{Title: "A", Path: "x/A (1)"})
	repo := openTestRepo(t, root)

	got, err := Query(context.Background(), repo, `SELECT id FROM books`, func(r Row) (string, error) {
		return r.String("title")
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want no rows", got)
	}
}

func TestQuery_MalformedStatement(t *testing.T) {
	root := testutil.NewLibrary(t)
	repo := openTestRepo(t, root)

	_, err := Query(context.Background(), repo, `SELEC nonsense`, nameFromRow)
	var qErr *QueryError
	if !errors.As(err, &qErr) {
		t.Fatalf("err = %v, want *QueryError", err)
	}
	if qErr.Query != `SELEC nonsense` {
		t.Errorf("QueryError.Query = %q", qErr.Query)
	}
}

func TestQuery_ClosedHandle(t *testing.T) {
	root := testutil.NewLibrary(t)
	repo, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	repo.Close()

	_, err = Query(context.Background(), repo, `SELECT 1 AS name`, nameFromRow)
	var qErr *QueryError
	if !errors.As(err, &qErr) {
		t.Fatalf("err = %v, want *QueryError", err)
	}
}

func TestRowAccessors(t *testing.T) {
	row := Row{
		cols:   resolveColumns([]string{"i", "f", "s", "b", "n", "bs"}),
		values: []any{int64(7), 2.5, "text", int64(1), nil, []byte("bytes")},
	}

	if v, err := row.Int64("i"); err != nil || v != 7 {
		t.Errorf("Int64 = %v, %v", v, err)
	}
	if v, err := row.Float64("f"); err != nil || v != 2.5 {
		t.Errorf("Float64 = %v, %v", v, err)
	}
	if v, err := row.Float64("i"); err != nil || v != 7 {
		t.Errorf("Float64(int) = %v, %v", v, err)
	}
	if v, err := row.String("s"); err != nil || v != "text" {
		t.Errorf("String = %v, %v", v, err)
	}
	if v, err := row.String("bs"); err != nil || v != "bytes" {
		t.Errorf("String(bytes) = %v, %v", v, err)
	}
	if v, err := row.Bool("b"); err != nil || !v {
		t.Errorf("Bool = %v, %v", v, err)
	}
	if v, err := row.NullString("n"); err != nil || v != nil {
		t.Errorf("NullString(NULL) = %v, %v", v, err)
	}
	if _, err := row.String("n"); !errors.Is(err, ErrNullValue) {
		t.Errorf("String(NULL) err = %v, want ErrNullValue", err)
	}
	if _, err := row.String("missing"); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("String(missing) err = %v, want ErrMissingColumn", err)
	}
	if _, err := row.String("i"); !errors.Is(err, ErrUnexpectedType) {
		t.Errorf("String(int) err = %v, want ErrUnexpectedType", err)
	}
	if !row.Has("f") || row.Has("missing") {
		t.Error("Has reports wrong columns")
	}
}
