// Package cache holds process-lifetime memoization for the bundler: the
// comment-stripped view of a file (expensive, one subprocess per file) and
// the location a header name resolves to across the configured search
// directories. Resolutions are keyed by header name alone.
package cache

import (
	"strings"
	"sync"
)

type stripKey struct {
	path   string
	dirs   string
	driver string
}

// notFound is the sentinel stored for a header name known not to resolve,
// so a repeated lookup doesn't re-walk the search directories.
const notFound = "\x00not-found"

// Cache is safe for concurrent use: a single instance may be shared across
// goroutines bundling independent root files, mirroring nocc's
// IncludesCache, which is shared across every .cpp compiled by one daemon.
type Cache struct {
	mu       sync.RWMutex
	stripped map[stripKey][]byte
	resolved map[string]string
}

func New() *Cache {
	return &Cache{
		stripped: make(map[stripKey][]byte),
		resolved: make(map[string]string),
	}
}

func makeStripKey(path string, dirs []string, driver string) stripKey {
	return stripKey{path: path, dirs: strings.Join(dirs, "\x1f"), driver: driver}
}

// GetStripped returns a previously memoized stripped view, if any.
func (c *Cache) GetStripped(path string, dirs []string, driver string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.stripped[makeStripKey(path, dirs, driver)]
	return data, ok
}

// AddStripped memoizes a stripped view. Write-once per key: callers should
// have already checked GetStripped.
func (c *Cache) AddStripped(path string, dirs []string, driver string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stripped[makeStripKey(path, dirs, driver)] = data
}

// GetResolved returns a previously memoized header resolution. A resolved
// value of "" with ok=true means the header is known not to exist.
func (c *Cache) GetResolved(header string) (resolved string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, exists := c.resolved[header]
	if !exists {
		return "", false
	}
	if value == notFound {
		return "", true
	}
	return value, true
}

// AddResolved memoizes that header resolves to path. An empty path
// memoizes a failed resolution.
func (c *Cache) AddResolved(header string, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path == "" {
		c.resolved[header] = notFound
	} else {
		c.resolved[header] = path
	}
}

func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stripped) + len(c.resolved)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stripped = make(map[stripKey][]byte)
	c.resolved = make(map[string]string)
}
