package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/shelf/internal/assets"
	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, is mounted at GET /events inside the auth group and
// is told about every reload.
func NewRouter(svc *library.Service, resolver *assets.Resolver, authEnabled bool, token string, broker *sse.Broker) chi.Router {
	h := NewHandler(svc, broker)
	ah := NewAssetHandler(svc, resolver)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Books.
	r.Get("/books", h.ListBooks)
	r.Get("/books/{id}", h.GetBook)
	r.Get("/books/{id}/comments", h.Comments)

	// Files inside the library root.
	r.Get("/books/{id}/cover", ah.Cover)
	r.Get("/books/{id}/file", ah.File)

	r.Post("/reload", h.Reload)

	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
