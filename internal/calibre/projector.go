package calibre

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/starford/shelf/internal/models"
)

// Option configures a projection.
type Option func(*projector)

type projector struct {
	repo    *Repository
	logger  *slog.Logger
	workers int
}

// WithLogger sets the logger that records degraded fields.
func WithLogger(l *slog.Logger) Option {
	return func(p *projector) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithWorkers enriches up to n books concurrently. Output order is unchanged.
func WithWorkers(n int) Option {
	return func(p *projector) {
		if n > 0 {
			p.workers = n
		}
	}
}

// ListBooks projects every row of the books table into a LibraryBook, in
// table row order.
//
// Only a failing books query is fatal. A failing author, series, file, or
// comments lookup leaves that field absent for that book.
func ListBooks(ctx context.Context, repo *Repository, opts ...Option) ([]models.LibraryBook, error) {
	p := &projector{repo: repo, logger: repo.logger, workers: 1}
	for _, opt := range opts {
		opt(p)
	}

	records, err := Query(ctx, repo, booksQuery, bookRecordFromRow)
	if err != nil {
		return nil, err
	}

	books := make([]models.LibraryBook, len(records))
	if p.workers <= 1 {
		for i, rec := range records {
			books[i] = p.project(ctx, rec)
		}
	} else {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)
		for i, rec := range records {
			g.Go(func() error {
				books[i] = p.project(gCtx, rec)
				return nil
			})
		}
		_ = g.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, &QueryError{Query: booksQuery, Err: err}
	}
	return books, nil
}

// ListAuthors returns every row of the authors table in table order.
func ListAuthors(ctx context.Context, repo *Repository) ([]models.AuthorRecord, error) {
	return Query(ctx, repo, allAuthorsQuery, authorRecordFromRow)
}

func (p *projector) project(ctx context.Context, rec models.BookRecord) models.LibraryBook {
	root := p.repo.Root()
	book := models.LibraryBook{
		ID:               rec.ID,
		Title:            rec.Title,
		AuthorList:       []string{},
		CustomTitleSort:  rec.Sort,
		CustomAuthorSort: rec.AuthorSort,
	}

	if rec.HasCover {
		cover := CoverPath(root, rec.Path)
		book.CoverPath = &cover
	}

	if names, err := Query(ctx, p.repo, authorsQuery, nameFromRow, rec.ID); err != nil {
		p.degraded(rec.ID, "authors", err)
	} else {
		book.AuthorList = names
	}

	if names, err := Query(ctx, p.repo, seriesQuery, nameFromRow, rec.ID); err != nil {
		p.degraded(rec.ID, "series", err)
	} else if len(names) > 0 {
		book.Series = &models.SeriesPosition{
			Name:     names[0],
			Position: FormatSeriesIndex(rec.SeriesIndex),
		}
	}

	// First row wins: with several formats, SQLite's row order decides.
	if files, err := Query(ctx, p.repo, dataQuery, dataRecordFromRow, rec.ID); err != nil {
		p.degraded(rec.ID, "file", err)
	} else if len(files) > 0 {
		path := BookFilePath(root, rec.Path, files[0].Name, files[0].Format)
		book.FilePath = &path
	}

	if texts, err := Query(ctx, p.repo, commentsQuery, textFromRow, rec.ID); err != nil {
		p.degraded(rec.ID, "comments", err)
	} else if len(texts) > 0 {
		book.Comments = &texts[0]
	}

	return book
}

func (p *projector) degraded(bookID int64, field string, err error) {
	p.logger.Warn("calibre: enrichment failed",
		slog.Int64("book_id", bookID),
		slog.String("field", field),
		slog.String("error", err.Error()))
}
