// Package testutil builds throwaway Calibre libraries for tests.
package testutil

import (
	"database/sql"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// Subset of Calibre's schema, column order as Calibre creates it.
const calibreSchemaSQL = `
CREATE TABLE books (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	title         TEXT NOT NULL DEFAULT 'Unknown' COLLATE NOCASE,
	sort          TEXT COLLATE NOCASE,
	timestamp     TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	pubdate       TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	series_index  REAL NOT NULL DEFAULT 1.0,
	author_sort   TEXT COLLATE NOCASE,
	isbn          TEXT DEFAULT '' COLLATE NOCASE,
	lccn          TEXT DEFAULT '' COLLATE NOCASE,
	path          TEXT NOT NULL DEFAULT '',
	flags         INTEGER NOT NULL DEFAULT 1,
	uuid          TEXT,
	has_cover     BOOL DEFAULT 0,
	last_modified TIMESTAMP NOT NULL DEFAULT '2000-01-01 00:00:00+00:00'
);

CREATE TABLE authors (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL COLLATE NOCASE,
	sort TEXT COLLATE NOCASE,
	link TEXT NOT NULL DEFAULT '',
	UNIQUE(name)
);

CREATE TABLE books_authors_link (
	id     INTEGER PRIMARY KEY,
	book   INTEGER NOT NULL,
	author INTEGER NOT NULL,
	UNIQUE(book, author)
);
CREATE INDEX books_authors_link_bidx ON books_authors_link (book);
CREATE INDEX books_authors_link_aidx ON books_authors_link (author);

CREATE TABLE series (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL COLLATE NOCASE,
	sort TEXT COLLATE NOCASE,
	link TEXT NOT NULL DEFAULT '',
	UNIQUE(name)
);

CREATE TABLE books_series_link (
	id     INTEGER PRIMARY KEY,
	book   INTEGER NOT NULL,
	series INTEGER NOT NULL,
	UNIQUE(book)
);

CREATE TABLE data (
	id                INTEGER PRIMARY KEY,
	book              INTEGER NOT NULL,
	format            TEXT NOT NULL COLLATE NOCASE,
	uncompressed_size INTEGER NOT NULL DEFAULT 0,
	name              TEXT NOT NULL,
	UNIQUE(book, format)
);

CREATE TABLE comments (
	id   INTEGER PRIMARY KEY,
	book INTEGER NOT NULL,
	text TEXT NOT NULL COLLATE NOCASE,
	UNIQUE(book)
);
`

// Format is one stored file of a book (a row of the data table).
type Format struct {
	Format string
	Name   string
}

// Book describes one fixture book and its link rows.
type Book struct {
	ID          int64
	Title       string
	Sort        *string
	AuthorSort  *string
	Path        string
	HasCover    bool
	SeriesIndex float64
	Authors     []string // linked in this order
	Series      string   // empty for none
	Formats     []Format
	Comments    *string
}

// Ptr returns a pointer to s.
func Ptr(s string) *string { return &s }

// NewLibrary creates a library root with a metadata.db holding books and an
// asset directory per book. It returns the root.
func NewLibrary(t *testing.T, books ...Book) string {
	t.Helper()
	root := t.TempDir()

	db := openRW(t, root)
	defer db.Close()

	if _, err := db.Exec(calibreSchemaSQL); err != nil {
		t.Fatalf("apply calibre schema: %v", err)
	}

	authorIDs := map[string]int64{}
	seriesIDs := map[string]int64{}

	for _, b := range books {
		if b.SeriesIndex == 0 {
			b.SeriesIndex = 1
		}
		res, err := db.Exec(`
			INSERT INTO books (id, title, sort, author_sort, path, has_cover, series_index)
			VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?, ?)`,
			b.ID, b.Title, b.Sort, b.AuthorSort, b.Path, b.HasCover, b.SeriesIndex)
		if err != nil {
			t.Fatalf("insert book %q: %v", b.Title, err)
		}
		bookID, _ := res.LastInsertId()

		for _, name := range b.Authors {
			id, ok := authorIDs[name]
			if !ok {
				r, err := db.Exec(`INSERT INTO authors (name, sort) VALUES (?, ?)`, name, name)
				if err != nil {
					t.Fatalf("insert author %q: %v", name, err)
				}
				id, _ = r.LastInsertId()
				authorIDs[name] = id
			}
			if _, err := db.Exec(`INSERT INTO books_authors_link (book, author) VALUES (?, ?)`, bookID, id); err != nil {
				t.Fatalf("link author %q: %v", name, err)
			}
		}

		if b.Series != "" {
			id, ok := seriesIDs[b.Series]
			if !ok {
				r, err := db.Exec(`INSERT INTO series (name, sort) VALUES (?, ?)`, b.Series, b.Series)
				if err != nil {
					t.Fatalf("insert series %q: %v", b.Series, err)
				}
				id, _ = r.LastInsertId()
				seriesIDs[b.Series] = id
			}
			if _, err := db.Exec(`INSERT INTO books_series_link (book, series) VALUES (?, ?)`, bookID, id); err != nil {
				t.Fatalf("link series %q: %v", b.Series, err)
			}
		}

		for _, f := range b.Formats {
			if _, err := db.Exec(`INSERT INTO data (book, format, name) VALUES (?, ?, ?)`, bookID, f.Format, f.Name); err != nil {
				t.Fatalf("insert format %q: %v", f.Format, err)
			}
		}

		if b.Comments != nil {
			if _, err := db.Exec(`INSERT INTO comments (book, text) VALUES (?, ?)`, bookID, *b.Comments); err != nil {
				t.Fatalf("insert comments: %v", err)
			}
		}

		if b.Path != "" {
			if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(b.Path)), 0o755); err != nil {
				t.Fatal(err)
			}
		}
	}

	return root
}

// Exec runs statements against a fixture library's metadata.db, read-write.
func Exec(t *testing.T, root, query string, args ...any) {
	t.Helper()
	db := openRW(t, root)
	defer db.Close()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// WriteCover writes a solid w×h JPEG as <root>/<bookPath>/cover.jpg and
// returns its path.
func WriteCover(t *testing.T, root, bookPath string, w, h int) string {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(bookPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	path := filepath.Join(dir, "cover.jpg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	return path
}

// WriteFile writes content to <root>/<rel> and returns the absolute path.
func WriteFile(t *testing.T, root, rel string, content []byte) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func openRW(t *testing.T, root string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(root, "metadata.db")+"?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	return db
}
