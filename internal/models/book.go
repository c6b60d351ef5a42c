// Package models defines the domain types for shelf.
package models

import "strings"

// BookRecord is one raw row of the Calibre books table.
type BookRecord struct {
	ID          int64
	Title       string
	Sort        *string // books.sort
	AuthorSort  *string // books.author_sort
	Path        string  // relative to the library root
	HasCover    bool
	SeriesIndex float64
}

// AuthorRecord is one raw row of the Calibre authors table.
type AuthorRecord struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Sort *string `json:"sort,omitempty"`
}

// SeriesPosition places a book inside a named series.
type SeriesPosition struct {
	Name     string `json:"name"`
	Position string `json:"position"`
}

// LibraryBook is the projected, immutable view of one Calibre book.
//
// Optional fields are nil when absent. AuthorList is never nil and keeps the
// order the link table returned.
type LibraryBook struct {
	ID               int64           `json:"id"`
	Title            string          `json:"title"`
	AuthorList       []string        `json:"authors"`
	CoverPath        *string         `json:"cover_path,omitempty"`
	FilePath         *string         `json:"file_path,omitempty"`
	Comments         *string         `json:"comments,omitempty"`
	Series           *SeriesPosition `json:"series,omitempty"`
	CustomTitleSort  *string         `json:"-"`
	CustomAuthorSort *string         `json:"-"`
}

// Authors returns the display string, names joined with " & ".
func (b LibraryBook) Authors() string {
	return strings.Join(b.AuthorList, " & ")
}

// SortableTitle returns the custom title sort, or the title itself.
func (b LibraryBook) SortableTitle() string {
	if b.CustomTitleSort != nil {
		return *b.CustomTitleSort
	}
	return b.Title
}

// SortableAuthorList returns the custom author sort, or the author names
// joined with ", ".
func (b LibraryBook) SortableAuthorList() string {
	if b.CustomAuthorSort != nil {
		return *b.CustomAuthorSort
	}
	return strings.Join(b.AuthorList, ", ")
}

// BookView is the flattened JSON shape shared by the CLI and the MCP tools:
// the book plus its resolved sort keys and display string.
type BookView struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	TitleSort      string          `json:"title_sort"`
	Authors        []string        `json:"authors"`
	AuthorsDisplay string          `json:"authors_display"`
	AuthorSort     string          `json:"author_sort"`
	Series         *SeriesPosition `json:"series,omitempty"`
	CoverPath      *string         `json:"cover_path,omitempty"`
	FilePath       *string         `json:"file_path,omitempty"`
	Comments       *string         `json:"comments,omitempty"`
}

// View flattens b. Comments are included only when withComments is set.
func (b LibraryBook) View(withComments bool) BookView {
	v := BookView{
		ID:             b.ID,
		Title:          b.Title,
		TitleSort:      b.SortableTitle(),
		Authors:        b.AuthorList,
		AuthorsDisplay: b.Authors(),
		AuthorSort:     b.SortableAuthorList(),
		Series:         b.Series,
		CoverPath:      b.CoverPath,
		FilePath:       b.FilePath,
	}
	if withComments {
		v.Comments = b.Comments
	}
	return v
}
