package apperr

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrNoCover    = errors.New("book has no cover")
	ErrNoFile     = errors.New("book has no file")
	ErrNoComments = errors.New("book has no comments")
	ErrOutsideLib = errors.New("path escapes library root")
)
