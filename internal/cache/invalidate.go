package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// clearDir removes every cache entry directly under dir. With recursive set
// it descends into subdirectories too. Directories stay in place, and files
// without the cache extension are never touched. A missing directory is a
// no-op.
//
// Removal keeps going past individual failures and reports the first one, so
// a single locked file does not shield the rest of the directory.
func clearDir(dir string, recursive bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	var first error
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if recursive {
				if err := clearDir(p, true); err != nil && first == nil {
					first = err
				}
			}
			continue
		}
		if !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logrus.Errorf("Failed to remove cache entry %s: %v", p, err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
