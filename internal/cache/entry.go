package cache

import "encoding/json"

// Extension marks files owned by the cache. Invalidation only ever touches
// files carrying it.
const Extension = ".json"

// Entry is the on-disk record for one cached response.
type Entry struct {
	// Timestamp is the save time in seconds since the epoch.
	Timestamp int64 `json:"timestamp"`
	// Parameters is the merged input-parameter map the key was derived from.
	// Stored for debugging, not revalidated on read.
	Parameters map[string]any `json:"parameters"`
	// EndPoint is the last segment of the logical address.
	EndPoint string `json:"endPoint"`
	// Data is the cached payload.
	Data json.RawMessage `json:"data"`
}
