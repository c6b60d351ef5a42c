package api

import (
	"fmt"

	"github.com/starford/shelf/internal/models"
)

// BookItem is one row of the book table.
type BookItem struct {
	ID             int64                  `json:"id" example:"1"`
	Title          string                 `json:"title" example:"Atomic Habits"`
	TitleSort      string                 `json:"title_sort" example:"Atomic Habits"`
	Authors        []string               `json:"authors"`
	AuthorsDisplay string                 `json:"authors_display" example:"Rachel A. Rosen & Zilla Novikov"`
	AuthorSort     string                 `json:"author_sort" example:"Rosen, Rachel A."`
	Series         *models.SeriesPosition `json:"series,omitempty"`
	CoverURL       string                 `json:"cover_url,omitempty" example:"/api/books/1/cover"`
	FileURL        string                 `json:"file_url,omitempty" example:"/api/books/1/file"`
	CommentsURL    string                 `json:"comments_url,omitempty" example:"/api/books/1/comments"`
}

// BookDetail is the detail pane of one book.
type BookDetail struct {
	BookItem
	Comments *string `json:"comments,omitempty"`
}

// BookListResponse wraps a book listing.
type BookListResponse struct {
	Books []BookItem `json:"books" validate:"required"`
	Total int        `json:"total" example:"42" validate:"required"`
}

// ReloadResponse is returned after a successful reload.
type ReloadResponse struct {
	Total int `json:"total" example:"42"`
}

func toBookItem(b models.LibraryBook) BookItem {
	item := BookItem{
		ID:             b.ID,
		Title:          b.Title,
		TitleSort:      b.SortableTitle(),
		Authors:        b.AuthorList,
		AuthorsDisplay: b.Authors(),
		AuthorSort:     b.SortableAuthorList(),
		Series:         b.Series,
	}
	if b.CoverPath != nil {
		item.CoverURL = fmt.Sprintf("/api/books/%d/cover", b.ID)
	}
	if b.FilePath != nil {
		item.FileURL = fmt.Sprintf("/api/books/%d/file", b.ID)
	}
	if b.Comments != nil {
		item.CommentsURL = fmt.Sprintf("/api/books/%d/comments", b.ID)
	}
	return item
}

func toBookDetail(b models.LibraryBook) BookDetail {
	return BookDetail{BookItem: toBookItem(b), Comments: b.Comments}
}
