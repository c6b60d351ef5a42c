package api

import (
	"bytes"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/assets"
	"github.com/starford/shelf/internal/library"
)

// AssetHandler serves covers and book files from the library root.
type AssetHandler struct {
	svc      *library.Service
	resolver *assets.Resolver
}

// NewAssetHandler creates a handler that reads files through resolver.
func NewAssetHandler(svc *library.Service, resolver *assets.Resolver) *AssetHandler {
	return &AssetHandler{svc: svc, resolver: resolver}
}

// resolve maps a projected location to a file on disk, writing the error
// response itself when the file cannot be served.
func (h *AssetHandler) resolve(w http.ResponseWriter, location *string, missing error) (string, bool) {
	if location == nil {
		writeError(w, http.StatusNotFound, missing.Error())
		return "", false
	}
	abs, err := h.resolver.Resolve(*location)
	switch {
	case err == nil:
		return abs, true
	case errors.Is(err, apperr.ErrOutsideLib):
		slog.Warn("asset outside library", slog.String("path", *location))
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, missing.Error())
	default:
		slog.Error("resolve asset failed", slog.String("path", *location), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
	return "", false
}

// Cover handles GET /api/books/{id}/cover.
//
//	@Summary		Get a book's cover image
//	@Tags			books
//	@Produce		image/jpeg
//	@Param			id	path	int	true	"Calibre book id"
//	@Param			w	query	int	false	"Thumbnail width in pixels"
//	@Success		200	"Image"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/{id}/cover [get]
func (h *AssetHandler) Cover(w http.ResponseWriter, r *http.Request) {
	book, ok := lookupBook(w, r, h.svc)
	if !ok {
		return
	}
	abs, ok := h.resolve(w, book.CoverPath, apperr.ErrNoCover)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("w")
	if raw == "" {
		w.Header().Set("Content-Type", "image/jpeg")
		http.ServeFile(w, r, abs)
		return
	}
	width, err := strconv.Atoi(raw)
	if err != nil || width <= 0 {
		writeError(w, http.StatusBadRequest, "w must be a positive integer")
		return
	}

	var buf bytes.Buffer
	if err := assets.Thumbnail(&buf, abs, width); err != nil {
		slog.Error("thumbnail failed", slog.Int64("book_id", book.ID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "cannot render cover")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// File handles GET /api/books/{id}/file.
//
//	@Summary		Download a book's first stored format
//	@Tags			books
//	@Produce		octet-stream
//	@Param			id	path	int	true	"Calibre book id"
//	@Success		200	"File contents"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/{id}/file [get]
func (h *AssetHandler) File(w http.ResponseWriter, r *http.Request) {
	book, ok := lookupBook(w, r, h.svc)
	if !ok {
		return
	}
	abs, ok := h.resolve(w, book.FilePath, apperr.ErrNoFile)
	if !ok {
		return
	}

	f, err := os.Open(abs)
	if err != nil {
		slog.Error("open book file failed", slog.String("path", abs), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	ctype, err := assets.ContentType(abs)
	if err != nil {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": filepath.Base(abs),
	}))
	http.ServeContent(w, r, filepath.Base(abs), info.ModTime(), f)
}
