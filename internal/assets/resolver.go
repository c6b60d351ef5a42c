// Package assets resolves and reads the files a projected book points at:
// covers and stored formats inside the library root.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/starford/shelf/internal/apperr"
)

// Resolver confines asset locations to one library root.
type Resolver struct {
	root string // absolute library root
}

// NewResolver creates a Resolver for the given library root.
// The directory must already exist.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("assets: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("assets: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("assets: root is not a directory: %s", abs)
	}
	return &Resolver{root: abs}, nil
}

// Resolve checks that location lies inside the library root and names an
// existing regular file. books.path comes from the database, so a crafted
// value like "../../etc" must not reach the file system.
func (r *Resolver) Resolve(location string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(location))
	if err != nil {
		return "", fmt.Errorf("assets: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, r.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("assets: %s: %w", location, apperr.ErrOutsideLib)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("assets: %s: %w", location, apperr.ErrNotFound)
		}
		return "", fmt.Errorf("assets: stat %s: %w", location, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("assets: %s is a directory: %w", location, apperr.ErrNotFound)
	}
	return abs, nil
}

// ContentType sniffs the content type of a resolved file.
func ContentType(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("assets: detect type %s: %w", path, err)
	}
	return mtype.String(), nil
}
