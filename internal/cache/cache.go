// Stores computed responses on disk, keyed by logical address and parameters
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Config carries the deployment-level settings of the cache.
type Config struct {
	// Root is the directory all entries live under.
	Root string
	// Disabled turns every operation into a no-op.
	Disabled bool
}

// Request identifies the work whose response is being cached: the logical
// address it was issued against and the parameters it ran with.
type Request struct {
	URI    string
	Params map[string]any
}

// Options tunes a single Cache instance.
type Options struct {
	// Freshness picks the expiry policy. The zero value is TTL(0), which
	// never serves a hit, so callers must choose a policy explicitly.
	Freshness Freshness
	// Extra is overlaid on the request parameters before key derivation.
	// Use it to fold context into the key that the request itself does not
	// carry, like a tenant or an API version. On collision extra wins.
	Extra map[string]any
	// URI overrides the request address for directory binding.
	URI string
}

// Cache binds one request identity to one file under the root. All methods
// are no-ops when the instance is disabled, so call sites stay free of
// enabled checks.
type Cache struct {
	root     string
	mode     Freshness
	req      Request
	extra    map[string]any
	params   map[string]any
	uri      string
	dir      string
	endpoint string
	key      string
	enabled  bool

	now func() time.Time
}

// New builds a Cache for one request. It never fails: with no usable root,
// with Disabled set, or when the identity cannot be derived, the instance
// comes back disabled and every operation is a silent no-op.
func New(cfg Config, req Request, opts Options) *Cache {
	c := &Cache{
		root:  cfg.Root,
		mode:  opts.Freshness,
		req:   req,
		extra: opts.Extra,
		now:   time.Now,
	}
	if cfg.Disabled || cfg.Root == "" {
		return c
	}
	c.enabled = true
	c.uri = req.URI
	if opts.URI != "" {
		c.uri = opts.URI
	}
	c.derive()
	return c
}

// derive recomputes the merged parameters, directory, endpoint and key from
// the current address. A derivation failure disables the instance for good.
func (c *Cache) derive() {
	if !c.enabled {
		return
	}
	c.params = mergeParams(c.req.Params, c.extra)
	c.dir, c.endpoint = deriveDir(c.root, c.uri)
	key, err := deriveKey(c.params, c.endpoint)
	if err != nil {
		logrus.Warnf("Disabling cache for %q: %v", c.uri, err)
		c.enabled = false
		return
	}
	c.key = key
}

// Enabled reports whether operations on this instance touch the disk.
func (c *Cache) Enabled() bool { return c.enabled }

// Dir returns the directory this instance is bound to.
func (c *Cache) Dir() string { return c.dir }

// Key returns the entry filename derived from parameters and endpoint.
func (c *Cache) Key() string { return c.key }

// Path returns the full path of the bound entry file.
func (c *Cache) Path() string { return filepath.Join(c.dir, c.key) }

// UpdateURI rebinds the instance to another logical address and recomputes
// directory, endpoint and key. It returns the receiver for chaining.
func (c *Cache) UpdateURI(uri string) *Cache {
	c.uri = uri
	c.derive()
	return c
}

// UpdateAdditionalParams replaces the overlay parameters and recomputes the
// key. The directory stays as it was. It returns the receiver for chaining.
func (c *Cache) UpdateAdditionalParams(extra map[string]any) *Cache {
	c.extra = extra
	c.derive()
	return c
}

// Get returns the cached payload for the bound identity, or (nil, nil) on a
// miss. Stale and undecodable entries count as misses and are removed on the
// spot, so the next Save starts clean.
func (c *Cache) Get() (json.RawMessage, error) {
	if !c.enabled {
		return nil, nil
	}
	p := c.Path()
	entry, err := readEntry(c.root, p)
	if err != nil {
		if errors.Is(err, errCorruptEntry) {
			logrus.Warnf("Dropping unreadable cache entry: %v", err)
			if rmErr := deleteEntry(c.root, p); rmErr != nil {
				logrus.Errorf("Failed to remove unreadable cache entry: %v", rmErr)
			}
			return nil, nil
		}
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	if !fresh(c.mode, entry.Timestamp, c.now()) {
		logrus.Debugf("Cache entry expired: %s", p)
		if rmErr := deleteEntry(c.root, p); rmErr != nil {
			logrus.Errorf("Failed to remove expired cache entry: %v", rmErr)
		}
		return nil, nil
	}
	return entry.Data, nil
}

// Save stores data as the payload for the bound identity, overwriting any
// previous entry. data must be JSON-serializable.
func (c *Cache) Save(data any) error {
	if !c.enabled {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	entry := &Entry{
		Timestamp:  c.now().Unix(),
		Parameters: c.params,
		EndPoint:   c.endpoint,
		Data:       raw,
	}
	if err := writeEntry(c.root, c.dir, c.key, entry); err != nil {
		return err
	}
	logrus.Debugf("Cached response: %s", c.Path())
	return nil
}

// ClearByURI removes the entries in the directory of the given address,
// without descending into subdirectories. An empty address clears the
// directory this instance is bound to.
func (c *Cache) ClearByURI(uri string) error {
	if !c.enabled {
		return nil
	}
	dir := c.dir
	if uri != "" {
		dir, _ = deriveDir(c.root, uri)
	}
	return clearDir(dir, false)
}

// ClearAll removes every entry under the root, leaving the directory tree
// and any foreign files in place.
func (c *Cache) ClearAll() error {
	if !c.enabled {
		return nil
	}
	return clearDir(c.root, true)
}
