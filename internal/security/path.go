package security

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// ValidateFilePath rejects empty paths, paths with NUL bytes, and paths that
// climb out of their directory with "..". Absolute paths are allowed.
func ValidateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("file path contains NUL byte")
	}

	// check the raw components too, filepath.Clean folds "a/../.." into ".."
	parts := strings.FieldsFunc(filepath.ToSlash(path), func(r rune) bool { return r == '/' })
	if slices.Contains(parts, "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}

	return nil
}
