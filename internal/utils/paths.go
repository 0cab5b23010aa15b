package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// Stem returns the file name of path without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	s, err := os.Stat(path)
	if err != nil {
		return false
	}
	return s.IsDir()
}

// EnsureDir creates path (and parents) when it does not exist yet.
func EnsureDir(path string) error {
	s, err := os.Stat(path)
	if err == nil {
		if s.IsDir() {
			return nil
		}
		return &os.PathError{Op: "mkdir", Path: path, Err: os.ErrExist}
	}
	if os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}
	return err
}
