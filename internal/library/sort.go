package library

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/shelf/internal/models"
)

// SortKey selects the column a book list is ordered by.
type SortKey string

// Sort keys.
const (
	SortNatural SortKey = "natural"
	SortTitle   SortKey = "title"
	SortAuthor  SortKey = "author"
)

// ParseSortKey accepts "", "natural", "title" or "author".
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortNatural:
		return SortNatural, nil
	case SortTitle:
		return SortTitle, nil
	case SortAuthor:
		return SortAuthor, nil
	}
	return "", fmt.Errorf("library: unknown sort key %q", s)
}

// ListOptions filters and orders a book list.
type ListOptions struct {
	Query string // case-insensitive substring of the title or any author
	Sort  SortKey
	Desc  bool
}

// Apply returns a filtered, sorted copy of books. Ties keep library order.
func Apply(books []models.LibraryBook, opts ListOptions) []models.LibraryBook {
	out := filter(books, opts.Query)

	var key func(models.LibraryBook) string
	switch opts.Sort {
	case SortTitle:
		key = models.LibraryBook.SortableTitle
	case SortAuthor:
		key = models.LibraryBook.SortableAuthorList
	}

	if key != nil {
		// collate.Collator is not safe for concurrent use.
		coll := collate.New(language.Und, collate.IgnoreCase, collate.Loose)
		slices.SortStableFunc(out, func(a, b models.LibraryBook) int {
			c := coll.CompareString(key(a), key(b))
			if opts.Desc {
				return -c
			}
			return c
		})
	} else if opts.Desc {
		slices.Reverse(out)
	}
	return out
}

func filter(books []models.LibraryBook, query string) []models.LibraryBook {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.LibraryBook, 0, len(books))
	for _, b := range books {
		if q == "" || matches(b, q) {
			out = append(out, b)
		}
	}
	return out
}

func matches(b models.LibraryBook, q string) bool {
	if strings.Contains(strings.ToLower(b.Title), q) {
		return true
	}
	for _, a := range b.AuthorList {
		if strings.Contains(strings.ToLower(a), q) {
			return true
		}
	}
	return false
}
