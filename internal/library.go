package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/shelf/internal/library"
)

// OpenLibrary opens the configured library and runs the first projection.
func OpenLibrary(ctx context.Context, cfg *Config, logger *slog.Logger) (*library.Service, error) {
	svc, err := library.Open(ctx, cfg.Library.Path,
		library.WithLogger(logger),
		library.WithWorkers(cfg.Library.Workers),
	)
	if err != nil {
		return nil, fmt.Errorf("open library %s: %w", cfg.Library.Path, err)
	}
	return svc, nil
}
