package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/starford/shelf/internal"
	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/htmltext"
	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/mcpserver"
	"github.com/starford/shelf/internal/models"
)

// commentsColumnWidth bounds the comments column of the list table.
const commentsColumnWidth = 60

// cliEnv is what a one-shot command needs: an opened library and a logger
// that stays off stdout.
type cliEnv struct {
	svc    *library.Service
	logger *slog.Logger
}

// withLibrary opens the configured library, runs fn and closes it again.
func withLibrary(ctx context.Context, cmd *cli.Command, fn func(*cliEnv) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
	slog.SetDefault(logger)

	svc, err := internal.OpenLibrary(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	return fn(&cliEnv{svc: svc, logger: logger})
}

type listFlags struct {
	sort     string
	desc     bool
	query    string
	json     bool
	comments bool
}

func listBooks(w io.Writer, env *cliEnv, f listFlags) error {
	key, err := library.ParseSortKey(f.sort)
	if err != nil {
		return err
	}
	books := env.svc.List(library.ListOptions{Query: f.query, Sort: key, Desc: f.desc})

	if f.json {
		views := make([]models.BookView, len(books))
		for i, b := range books {
			views[i] = b.View(f.comments)
		}
		return writeJSON(w, views)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "Title\tTitle sort\tAuthors\tSeries\tFormat"
	if f.comments {
		header += "\tComments"
	}
	fmt.Fprintln(tw, header)
	for _, b := range books {
		row := strings.Join([]string{
			b.Title,
			b.SortableTitle(),
			b.Authors(),
			seriesLabel(b.Series),
			formatLabel(b.FilePath),
		}, "\t")
		if f.comments {
			row += "\t" + commentsPreview(b.Comments)
		}
		fmt.Fprintln(tw, row)
	}
	return tw.Flush()
}

func showBook(w io.Writer, env *cliEnv, arg string, asJSON bool) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("show: book id must be a positive integer, got %q", arg)
	}
	book, err := env.svc.Book(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("show: book %d: %w", id, err)
		}
		return err
	}

	if asJSON {
		return writeJSON(w, book.View(true))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", book.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", book.Title)
	fmt.Fprintf(tw, "Title sort:\t%s\n", book.SortableTitle())
	fmt.Fprintf(tw, "Authors:\t%s\n", book.Authors())
	fmt.Fprintf(tw, "Author sort:\t%s\n", book.SortableAuthorList())
	if book.Series != nil {
		fmt.Fprintf(tw, "Series:\t%s\n", seriesLabel(book.Series))
	}
	if book.CoverPath != nil {
		fmt.Fprintf(tw, "Cover:\t%s\n", *book.CoverPath)
	}
	if book.FilePath != nil {
		fmt.Fprintf(tw, "File:\t%s\n", *book.FilePath)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if book.Comments != nil {
		if text := htmltext.ToText(*book.Comments); text != "" {
			fmt.Fprintf(w, "\n%s\n", text)
		}
	}
	return nil
}

func listAuthors(ctx context.Context, w io.Writer, env *cliEnv, asJSON bool) error {
	authors, err := env.svc.Authors(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, authors)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tName\tSort")
	for _, a := range authors {
		sort := ""
		if a.Sort != nil {
			sort = *a.Sort
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", a.ID, a.Name, sort)
	}
	return tw.Flush()
}

func serveMCP(env *cliEnv) error {
	env.logger.Info("MCP server starting", slog.String("library", env.svc.Root()), slog.Int("books", env.svc.Len()))
	return mcpserver.New(env.svc, version).ServeStdio()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func seriesLabel(s *models.SeriesPosition) string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("%s #%s", s.Name, s.Position)
}

// formatLabel shows the stored format as Calibre names it (EPUB, PDF).
func formatLabel(path *string) string {
	if path == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimPrefix(filepath.Ext(*path), "."))
}

func commentsPreview(comments *string) string {
	if comments == nil {
		return ""
	}
	text := strings.Join(strings.Fields(htmltext.ToText(*comments)), " ")
	runes := []rune(text)
	if len(runes) > commentsColumnWidth {
		return string(runes[:commentsColumnWidth-1]) + "…"
	}
	return text
}
