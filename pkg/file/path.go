package file

import (
	"path/filepath"
	"strings"
)

// Stem is the base name of path without its last extension. Dot files keep
// their full name.
func Stem(path string) string {
	base := filepath.Base(path)
	if lastDot := strings.LastIndex(base, "."); lastDot > 0 {
		return base[:lastDot]
	}
	return base
}

// ReplaceExt swaps the last extension of path for ext, adding the leading dot
// when missing.
func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(filepath.Dir(path), Stem(path)+ext)
}
