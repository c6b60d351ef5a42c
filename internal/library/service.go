// Package library holds one opened Calibre library for the lifetime of a
// session: the repository connection and the latest projection.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/calibre"
	"github.com/starford/shelf/internal/models"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkers sets how many books are enriched concurrently per projection.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// Service owns the repository of one library and its latest book list.
type Service struct {
	repo    *calibre.Repository
	logger  *slog.Logger
	workers int

	// reloadMu orders whole reloads so an older projection never replaces a
	// newer one. mu only guards the published list.
	reloadMu sync.Mutex

	mu    sync.RWMutex
	books []models.LibraryBook
	byID  map[int64]int
}

// Open opens the library at root and runs the first projection. A
// *calibre.ConnectionError or a failing books query means no service.
func Open(ctx context.Context, root string, opts ...Option) (*Service, error) {
	s := &Service{logger: slog.Default(), workers: 1}
	for _, opt := range opts {
		opt(s)
	}

	repo, err := calibre.Open(root, calibre.WithReaders(s.workers), calibre.WithOpenLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.repo = repo

	if err := s.Reload(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return s, nil
}

// Root returns the absolute library root.
func (s *Service) Root() string {
	return s.repo.Root()
}

// Close releases the repository connection.
func (s *Service) Close() error {
	return s.repo.Close()
}

// Reload re-projects the library. On failure the previous list is kept.
// Concurrent calls run one after another.
func (s *Service) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	books, err := calibre.ListBooks(ctx, s.repo,
		calibre.WithLogger(s.logger),
		calibre.WithWorkers(s.workers))
	if err != nil {
		return fmt.Errorf("library: reload: %w", err)
	}

	byID := make(map[int64]int, len(books))
	for i, b := range books {
		byID[b.ID] = i
	}

	s.mu.Lock()
	s.books = books
	s.byID = byID
	s.mu.Unlock()

	s.logger.Info("library loaded",
		slog.String("root", s.repo.Root()),
		slog.Int("books", len(books)))
	return nil
}

// Books returns the current list in library order.
func (s *Service) Books() []models.LibraryBook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LibraryBook, len(s.books))
	copy(out, s.books)
	return out
}

// Len returns the number of books in the current list.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

// Book returns the book with the given Calibre id.
func (s *Service) Book(id int64) (models.LibraryBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return models.LibraryBook{}, apperr.ErrNotFound
	}
	return s.books[i], nil
}

// Authors returns every author row of the library.
func (s *Service) Authors(ctx context.Context) ([]models.AuthorRecord, error) {
	return calibre.ListAuthors(ctx, s.repo)
}

// List returns the current list filtered and sorted by opts.
func (s *Service) List(opts ListOptions) []models.LibraryBook {
	return Apply(s.Books(), opts)
}
