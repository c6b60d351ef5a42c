package calibre

import (
	"github.com/starford/shelf/internal/models"
)

const (
	booksQuery = `SELECT * FROM books`

	authorsQuery = `
		SELECT authors.name
		FROM books_authors_link
		JOIN authors ON books_authors_link.author = authors.id
		WHERE books_authors_link.book = ?
		ORDER BY books_authors_link.id`

	seriesQuery = `
		SELECT series.name
		FROM books_series_link
		JOIN series ON books_series_link.series = series.id
		WHERE books_series_link.book = ?
		LIMIT 1`

	dataQuery = `SELECT format, name FROM data WHERE book = ? LIMIT 1`

	commentsQuery = `SELECT text FROM comments WHERE book = ? LIMIT 1`

	allAuthorsQuery = `SELECT * FROM authors`
)

// dataRecord is one row of the data table: a stored format of a book.
type dataRecord struct {
	Format string
	Name   string
}

func bookRecordFromRow(r Row) (models.BookRecord, error) {
	var (
		b   models.BookRecord
		err error
	)
	if b.ID, err = r.Int64("id"); err != nil {
		return b, err
	}
	if b.Title, err = r.String("title"); err != nil {
		return b, err
	}
	if b.Path, err = r.String("path"); err != nil {
		return b, err
	}
	if b.HasCover, err = r.Bool("has_cover"); err != nil {
		return b, err
	}
	if b.SeriesIndex, err = r.Float64("series_index"); err != nil {
		return b, err
	}
	if b.Sort, err = r.NullString("sort"); err != nil {
		return b, err
	}
	if b.AuthorSort, err = r.NullString("author_sort"); err != nil {
		return b, err
	}
	return b, nil
}

func authorRecordFromRow(r Row) (models.AuthorRecord, error) {
	var (
		a   models.AuthorRecord
		err error
	)
	if a.ID, err = r.Int64("id"); err != nil {
		return a, err
	}
	if a.Name, err = r.String("name"); err != nil {
		return a, err
	}
	if a.Sort, err = r.NullString("sort"); err != nil {
		return a, err
	}
	return a, nil
}

func dataRecordFromRow(r Row) (dataRecord, error) {
	var (
		d   dataRecord
		err error
	)
	if d.Format, err = r.String("format"); err != nil {
		return d, err
	}
	if d.Name, err = r.String("name"); err != nil {
		return d, err
	}
	return d, nil
}

func nameFromRow(r Row) (string, error) {
	return r.String("name")
}

func textFromRow(r Row) (string, error) {
	return r.String("text")
}
