package calibre

import (
	"path/filepath"
	"strconv"
	"strings"
)

const (
	maxSeriesFractionDigits = 16
	coverFile               = "cover.jpg"
)

// FormatSeriesIndex renders a series index as a plain decimal: no exponent,
// no grouping, at most 16 fractional digits, no trailing zeros.
func FormatSeriesIndex(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 > maxSeriesFractionDigits {
		s = strconv.FormatFloat(v, 'f', maxSeriesFractionDigits, 64)
		s = strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// CoverPath returns <root>/<bookPath>/cover.jpg. It does not touch the disk.
func CoverPath(root, bookPath string) string {
	return filepath.Join(root, filepath.FromSlash(bookPath), coverFile)
}

// BookFilePath returns <root>/<bookPath>/<name>.<format>, the format
// extension lowercased.
func BookFilePath(root, bookPath, name, format string) string {
	return filepath.Join(root, filepath.FromSlash(bookPath), name+"."+strings.ToLower(format))
}
