package calibre

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/shelf/internal/testutil"
)

func TestListBooks_OneBookPerRowInOrder(t *testing.T) {
	titles := []string{"Zebra", "Apple", "Mango", "Banana"}
	var books []testutil.Book
	for i, title := range titles {
		books = append(books, testutil.Book{Title: title, Path: fmt.Sprintf("Author/%s (%d)", title, i+1)})
	}
	root := testutil.NewLibrary(t, books...)
	repo := openTestRepo(t, root)

	got, err := ListBooks(context.Background(), repo)
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(got) != len(titles) {
		t.Fatalf("len = %d, want %d", len(got), len(titles))
	}
	for i, b := range got {
		if b.Title != titles[i] {
			t.Errorf("book %d title = %q, want %q", i, b.Title, titles[i])
		}
	}
}

func TestListBooks_AtomicHabits(t *testing.T) {
	root := testutil.NewLibrary(t, testutil.Book{
		ID:       1,
		Title:    "Atomic Habits",
		Path:     "Author/Atomic Habits (1)",
		HasCover: true,
	})
	repo := openTestRepo(t, root)

	got, err := ListBooks(context.Background(), repo)
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	b := got[0]
	if b.ID != 1 || b.Title != "Atomic Habits" {
		t.Errorf("book = %d %q", b.ID, b.Title)
	}
	if b.AuthorList == nil || len(b.AuthorList) != 0 {
		t.Errorf("AuthorList = %#v, want empty non-nil", b.AuthorList)
	}
	wantCover := filepath.Join(repo.Root(), "Author", "Atomic Habits (1)", "cover.jpg")
	if b.CoverPath == nil || *b.CoverPath != wantCover {
		t.Errorf("CoverPath = %v, want %q", b.CoverPath, wantCover)
	}
	if b.Series != nil {
		t.Errorf("Series = %+v, want nil", b.Series)
	}
	if b.FilePath != nil || b.Comments != nil {
		t.Errorf("FilePath = %v, Comments = %v, want nil", b.FilePath, b.Comments)
	}
}

func TestListBooks_CoverOnlyWhenFlagged(t *testing.T) {
	root := testutil.NewLibrary(t,
		testutil.Book{Title: "With", Path: "a/With (1)", HasCover: true},
		testutil.Book{Title: "Without", Path: "a/Without (2)", HasCover: false},
	)
	repo := openTestRepo(t, root)

	got, err := ListBooks(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].CoverPath == nil {
		t.Error("flagged book has no cover location")
	}
	if got[1].CoverPath != nil {
		t.Errorf("unflagged book cover = %q, want nil", *got[1].CoverPath)
	}
}

func TestListBooks_AuthorsInLinkOrder(t *testing.T) {
	root := testutil.NewLibrary(t,
		testutil.Book{ID: 1, Title: "Other", Path: "z/Other (1)", Authors: []string{"Zilla Novikov"}},
		testutil.Book{
			ID:      2,
			Title:   "Cascade Failure",
			Path:    "Rachel A. Rosen/Cascade Failure (2)",
			Authors: []string{"Rachel A. Rosen", "Zilla Novikov"},
		},
	)
	repo := openTestRepo(t, root)

	got, err := ListBooks(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	b := got[1]
	if len(b.AuthorList) != 2 || b.AuthorList[0] != "Rachel A. Rosen" || b.AuthorList[1] != "Zilla Novikov" {
		t.Fatalf("AuthorList = %v", b.AuthorList)
	}
	if b.Authors() != "Rachel A. Rosen & Zilla Novikov" {
		t.Errorf("Authors() = %q", b.Authors())
	}
	if b.SortableAuthorList() != "Rachel A. Rosen, Zilla Novikov" {
		t.Errorf("SortableAuthorList() = %q", b.SortableAuthorList())
	}
}

// Link order is deliberately the reverse of author id order for every
// co-authored book, so an index walk over (book, author) would be caught.
func TestListBooks_AuthorsFollowLinkNotAuthorID(t *testing.T) {
	books := []testutil.Book{
		{Title: "Seed", Path: "a/Seed (1)", Authors: []string{"Ann Alpha", "Ben Beta", "Cy Gamma"}},
	}
	want := [][]string{{"Ann Alpha", "Ben Beta", "Cy Gamma"}}
	for i := 0; i < 12; i++ {
		var authors []string
		switch i % 3 {
		case 0:
			authors = []string{"Cy Gamma", "Ann Alpha"}
		case 1:
			authors = []string{"Ben Beta", "Ann Alpha"}
		default:
			authors = []string{"Cy Gamma", "Ben Beta", "Ann Alpha"}
		}
		books = append(books, testutil.Book{
			Title:   fmt.Sprintf("Joint %02d", i),
			Path:    fmt.Sprintf("a/Joint %02d (%d)", i, i+2),
			Authors: authors,
		})
		want = append(want, authors)
	}
	root := testutil.NewLibrary(t, books...)

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			repo, err := Open(root, WithReaders(workers))
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { repo.Close() })

			got, err := ListBooks(context.Background(), repo, WithWorkers(workers))
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(want) {
				t.Fatalf("len = %d, want %d", len(got), len(want))
			}
			for i, b := range got {
				if strings.Join(b.AuthorList, "|") != strings.Join(want[i], "|") {
					t.Errorf("%s: AuthorList = %v, want %v", b.Title, b.AuthorList, want[i])
				}
			}
		})
	}
}

func TestListBooks_SortFallbacks(t *testing.T) {
	root := testutil.NewLibrary(t,
		testutil.Book{Title: "The Hobbit", Sort: testutil.Ptr("Hobbit, The"), AuthorSort: testutil.Ptr("Tolkien, J. R. R."), Path: "a/The Hobbit (1)"},
		testutil.Book{Title: "Untitled Notes", Path: "a/Untitled Notes (2)"},
	)
	repo := openTestRepo(t, root)

	got, err := ListBooks(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	custom, plain := got[0], got[1]

	if custom.SortableTitle() != "Hobbit, The" {
		t.Errorf("custom SortableTitle = %q", custom.SortableTitle())
	}
	if custom.SortableAuthorList() != "Tolkien, J. R. R." {
		t.Errorf("custom SortableAuthorList = %q, want author_sort even with no linked authors", custom.SortableAuthorList())
	}
	if plain.SortableTitle() != "Untitled Notes" {
		t.Errorf("plain SortableTitle = %q", plain.SortableTitle())
	}
	if plain.SortableAuthorList() != "" {
		t.Errorf("plain SortableAuthorList = %q, want empty", plain.SortableAuthorList())
	}
}

func TestListBooks_SeriesPosition(t *testing.T) {
	root := testutil.NewLibrary(t,
		testutil.Book{Title: "Two", Path: "a/Two (1)", Series: "Saga", SeriesIndex: 2.0},
		testutil.Book{Title: "Two and a half", Path: "a/Two and a half (2)", Series: "Saga", SeriesIndex: 2.5},
		testutil.Book{Title: "Standalone", Path: "a/Standalone (3)", SeriesIndex: 4},
	)
	repo := openTestRepo(t, root)

	got, err := ListBooks(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	if s := got[0].Series; s == nil || s.Name != "Saga" || s.Position != "2" {
		t.Errorf("book 0 series = %+v, want Saga/2", s)
	}
	if s := got[1].Series; s == nil || s.Position != "2.5" {
		t.Errorf("book 1 series = %+v, want Saga/2.5", s)
	}
	if got[2].Series != nil {
		t.Errorf("standalone series = %+v, want nil", got[2].Series)
	}
}

func TestListBooks_FirstFormatWins(t *testing.T) {
	root := testutil.NewLibrary(t, testutil.Book{
		Title: "Dune",
		Path:  "Frank Herbert/Dune (1)",
		Formats: []testutil.Format{
			{Format: "EPUB", Name: "Dune - Frank Herbert"},
			{Format: "MOBI", Name: "Dune - Frank Herbert"},
		},
	})
	repo := openTestRepo(t, root)

	got, err := ListBooks(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	// Which format SQLite returns first is not defined; exactly one must be.
	fp := got[0].FilePath
	if fp == nil {
		t.Fatal("FilePath = nil, want one location")
	}
	dir := filepath.Join(repo.Root(), "Frank Herbert", "Dune (1)")
	epub := filepath.Join(dir, "Dune - Frank Herbert.epub")
	mobi := filepath.Join(dir, "Dune - Frank Herbert.mobi")
	if *fp != epub && *fp != mobi {
		t.Errorf("FilePath = %q, want %q or %q", *fp, epub, mobi)
	}
}

func TestListBooks_Comments(t *testing.T) {
	html := "<p>A <strong>great</strong> book.</p>"
	root := testutil.NewLibrary(t,
		testutil.Book{Title: "Commented", Path: "a/Commented (1)", Comments: &html},
		testutil.Book{Title: "Silent", Path: "a/Silent (2)"},
	)
	repo := openTestRepo(t, root)

	got, err := ListBooks(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Comments == nil || *got[0].Comments != html {
		t.Errorf("Comments = %v, want %q", got[0].Comments, html)
	}
	if got[1].Comments != nil {
		t.Errorf("Comments = %q, want nil", *got[1].Comments)
	}
}

func TestListBooks_SkipsMalformedRows(t *testing.T) {
	root := testutil.NewLibrary(t,
		testutil.Book{Title: "Good", Path: "a/Good (1)"},
		testutil.Book{Title: "Bad", Path: "a/Bad (2)"},
	)
	// path NOT NULL in the fixture schema, so drop the constraint by rebuilding.
	testutil.Exec(t, root, `
		CREATE TABLE books_tmp AS SELECT * FROM books;
		DROP TABLE books;
		ALTER TABLE books_tmp RENAME TO books;
		UPDATE books SET path = NULL WHERE title = 'Bad';`)
	repo := openTestRepo(t, root)

	got, err := ListBooks(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Good" {
		t.Errorf("got %+v, want only Good", got)
	}
}

func TestListBooks_EnrichmentFailureDegrades(t *testing.T) {
	html := "<p>kept</p>"
	root := testutil.NewLibrary(t, testutil.Book{
		Title:    "Orphan",
		Path:     "a/Orphan (1)",
		Authors:  []string{"Someone"},
		Series:   "Gone",
		Comments: &html,
	})
	testutil.Exec(t, root, `DROP TABLE books_series_link; DROP TABLE authors;`)
	repo := openTestRepo(t, root)

	got, err := ListBooks(context.Background(), repo)
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	b := got[0]
	if b.Series != nil {
		t.Errorf("Series = %+v, want nil after failed lookup", b.Series)
	}
	if len(b.AuthorList) != 0 {
		t.Errorf("AuthorList = %v, want empty after failed lookup", b.AuthorList)
	}
	if b.Comments == nil || *b.Comments != html {
		t.Errorf("Comments = %v, want unaffected", b.Comments)
	}
}

func TestListBooks_MissingBooksTableIsFatal(t *testing.T) {
	root := testutil.NewLibrary(t)
	repo := openTestRepo(t, root)
	testutil.Exec(t, root, `DROP TABLE books`)

	_, err := ListBooks(context.Background(), repo)
	var qErr *QueryError
	if !errors.As(err, &qErr) {
		t.Fatalf("err = %v, want *QueryError", err)
	}
}

func TestListBooks_ParallelKeepsOrder(t *testing.T) {
	var books []testutil.Book
	for i := 0; i < 40; i++ {
		books = append(books, testutil.Book{
			Title:   fmt.Sprintf("Book %02d", i),
			Path:    fmt.Sprintf("a/Book %02d (%d)", i, i+1),
			Authors: []string{fmt.Sprintf("Author %d", i%7)},
		})
	}
	root := testutil.NewLibrary(t, books...)
	repo, err := Open(root, WithReaders(4))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })

	got, err := ListBooks(context.Background(), repo, WithWorkers(4))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(books) {
		t.Fatalf("len = %d, want %d", len(got), len(books))
	}
	for i, b := range got {
		if b.Title != books[i].Title {
			t.Errorf("book %d = %q, want %q", i, b.Title, books[i].Title)
		}
		if len(b.AuthorList) != 1 || b.AuthorList[0] != books[i].Authors[0] {
			t.Errorf("book %d authors = %v", i, b.AuthorList)
		}
	}
}

func TestListBooks_CancelledContext(t *testing.T) {
	root := testutil.NewLibrary(t, testutil.Book{Title: "A", Path: "a/A (1)"})
	repo := openTestRepo(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ListBooks(ctx, repo)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	var qErr *QueryError
	if !errors.As(err, &qErr) {
		t.Errorf("err = %v, want *QueryError", err)
	}
}

func TestListBooks_RerunsQueries(t *testing.T) {
	root := testutil.NewLibrary(t, testutil.Book{Title: "First", Path: "a/First (1)"})
	repo := openTestRepo(t, root)

	first, err := ListBooks(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	testutil.Exec(t, root, `INSERT INTO books (title, path) VALUES ('Second', 'a/Second (2)')`)

	second, err := ListBooks(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 || len(second) != 2 {
		t.Errorf("lens = %d, %d, want 1, 2", len(first), len(second))
	}
}

func TestListAuthors(t *testing.T) {
	root := testutil.NewLibrary(t,
		testutil.Book{Title: "A", Path: "a/A (1)", Authors: []string{"Ursula K. Le Guin", "Octavia E. Butler"}},
	)
	repo := openTestRepo(t, root)

	got, err := ListAuthors(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "Ursula K. Le Guin" || got[1].Name != "Octavia E. Butler" {
		t.Errorf("authors = %+v", got)
	}
	if got[0].Sort == nil || *got[0].Sort != "Ursula K. Le Guin" {
		t.Errorf("sort = %v", got[0].Sort)
	}
}

func TestListAuthors_EmptyIsNotNil(t *testing.T) {
	repo := openTestRepo(t, testutil.NewLibrary(t))

	got, err := ListAuthors(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("authors = %#v, want empty non-nil", got)
	}
}
