package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/checksum"
	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *library.Service
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil.
func NewHandler(svc *library.Service, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, broker: broker}
}

// bookID parses the {id} URL parameter.
func bookID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// lookupBook resolves {id} or writes the 400/404 response itself.
func lookupBook(w http.ResponseWriter, r *http.Request, svc *library.Service) (models.LibraryBook, bool) {
	id, ok := bookID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return models.LibraryBook{}, false
	}
	book, err := svc.Book(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			slog.Error("get book failed", slog.Int64("book_id", id), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return models.LibraryBook{}, false
	}
	return book, true
}

// ListBooks handles GET /api/books.
//
//	@Summary		List the library's books
//	@Tags			books
//	@Produce		json
//	@Param			q		query		string	false	"Filter by title or author substring"
//	@Param			sort	query		string	false	"Sort column"	Enums(natural, title, author)
//	@Param			desc	query		bool	false	"Descending order"
//	@Success		200		{object}	BookListResponse
//	@Success		304		"Not modified"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books [get]
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sortKey, err := library.ParseSortKey(q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "sort must be natural, title or author")
		return
	}
	desc := false
	if v := q.Get("desc"); v != "" {
		if desc, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "desc must be a boolean")
			return
		}
	}

	books := h.svc.List(library.ListOptions{Query: q.Get("q"), Sort: sortKey, Desc: desc})
	items := make([]BookItem, len(books))
	for i, b := range books {
		items[i] = toBookItem(b)
	}

	body, err := json.Marshal(BookListResponse{Books: items, Total: len(items)})
	if err != nil {
		slog.Error("list books encode failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	etag := checksum.ETag(body)
	w.Header().Set("ETag", etag)
	if checksum.Matches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// GetBook handles GET /api/books/{id}.
//
//	@Summary		Get one book's detail
//	@Tags			books
//	@Produce		json
//	@Param			id	path		int	true	"Calibre book id"
//	@Success		200	{object}	BookDetail
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/{id} [get]
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, ok := lookupBook(w, r, h.svc)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toBookDetail(book))
}

// Comments handles GET /api/books/{id}/comments.
//
//	@Summary		Render a book's comments as an HTML page
//	@Tags			books
//	@Produce		html
//	@Param			id	path	int	true	"Calibre book id"
//	@Success		200	"HTML page"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/{id}/comments [get]
func (h *Handler) Comments(w http.ResponseWriter, r *http.Request) {
	book, ok := lookupBook(w, r, h.svc)
	if !ok {
		return
	}
	if book.Comments == nil {
		writeError(w, http.StatusNotFound, apperr.ErrNoComments.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := renderComments(w, book.Title, *book.Comments); err != nil {
		slog.Error("render comments failed", slog.Int64("book_id", book.ID), slog.String("error", err.Error()))
	}
}

// Reload handles POST /api/reload.
//
//	@Summary		Re-read the library database
//	@Tags			library
//	@Produce		json
//	@Success		200	{object}	ReloadResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reload [post]
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reload(r.Context()); err != nil {
		slog.Error("reload failed", slog.String("error", err.Error()))
		if h.broker != nil {
			h.broker.PublishError(err)
		}
		writeError(w, http.StatusInternalServerError, "reload failed")
		return
	}
	total := h.svc.Len()
	if h.broker != nil {
		h.broker.PublishReloaded(total)
	}
	writeJSON(w, http.StatusOK, ReloadResponse{Total: total})
}
