package api

import (
	"os"
	"path/filepath"
)

// ensureDir creates dir (and parents) if it doesn't already exist.
func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// writeFile writes data to path, creating any missing parent directories.
func writeFile(path string, data []byte) error {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
