package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// splitURI normalizes a logical address into path segments. Backslashes count
// as separators, repeated and trailing separators collapse, and "." / ".."
// segments resolve before the address can reach the filesystem.
func splitURI(uri string) []string {
	s := strings.ReplaceAll(uri, `\`, "/")
	s = path.Clean("/" + s)
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

// deriveDir maps a logical address to its directory under root and returns
// the endpoint, the final segment of the address. An empty address binds to
// root itself.
func deriveDir(root, uri string) (dir, endpoint string) {
	segs := splitURI(uri)
	if len(segs) == 0 {
		return root, ""
	}
	endpoint = segs[len(segs)-1]
	return filepath.Join(append([]string{root}, segs[:len(segs)-1]...)...), endpoint
}

// mergeParams overlays extra on top of base without touching either input.
// On collision the extra value wins.
func mergeParams(base, extra map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// deriveKey builds the entry filename from the merged parameters and the
// endpoint. encoding/json sorts map keys, so two maps with equal contents
// serialize identically regardless of insertion order.
func deriveKey(params map[string]any, endpoint string) (string, error) {
	canon, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("canonicalize parameters: %w", err)
	}
	sum := sha256.Sum256(append(canon, endpoint...))
	return hex.EncodeToString(sum[:]) + Extension, nil
}
