package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// errCorruptEntry wraps decode failures so callers can tell unreadable
// content apart from IO errors.
var errCorruptEntry = errors.New("corrupt cache entry")

// writeEntry serializes entry to dir/key, creating the directory chain on
// demand. The write happens under an exclusive lock so concurrent readers
// never observe a half-written file.
func writeEntry(root, dir, key string, entry *Entry) error {
	p := filepath.Join(dir, key)
	if err := ensureWithin(root, p); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open cache entry %s: %w", p, err)
	}
	defer f.Close()
	if err := lockFile(f, true); err != nil {
		return fmt.Errorf("lock cache entry %s: %w", p, err)
	}
	defer unlockFile(f)
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate cache entry %s: %w", p, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write cache entry %s: %w", p, err)
	}
	return nil
}

// readEntry loads the entry at path. A missing file is a plain miss, (nil,
// nil). Content that does not decode comes back as errCorruptEntry.
func readEntry(root, path string) (*Entry, error) {
	if err := ensureWithin(root, path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open cache entry %s: %w", path, err)
	}
	defer f.Close()
	if err := lockFile(f, false); err != nil {
		return nil, fmt.Errorf("lock cache entry %s: %w", path, err)
	}
	defer unlockFile(f)
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read cache entry %s: %w", path, err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w at %s: %v", errCorruptEntry, path, err)
	}
	return &entry, nil
}

// deleteEntry removes a single entry file. A file already gone is not an
// error.
func deleteEntry(root, path string) error {
	if err := ensureWithin(root, path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cache entry %s: %w", path, err)
	}
	return nil
}

// ensureWithin rejects paths that resolve outside the cache root. splitURI
// already strips traversal segments, this guards direct store calls.
func ensureWithin(root, path string) error {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %s escapes cache root %s", path, root)
	}
	return nil
}
