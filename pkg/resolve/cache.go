package resolve

import (
	"sync"

	"execroot/pkg/reactor"
)

// Key identifies one resolution within a session
type Key string

// KeyPrefix namespaces every resolution key
const KeyPrefix = "directories."

const (
	ExecutionRootKey Key = KeyPrefix + "execRoot"
	HighestDirKey    Key = KeyPrefix + "highestDir"
)

// DirectoryOfKey returns the key for resolving the directory of ref
func DirectoryOfKey(ref reactor.Ref) Key {
	return Key(KeyPrefix + "directoryOf-" + ref.String())
}

// Cache stores resolved directories for the lifetime of a build session.
// A single mutex covers lookup, computation and store, so each key is
// computed at most once no matter how many callers race for it.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]string
}

// NewCache creates an empty session cache
func NewCache() *Cache {
	return &Cache{
		entries: make(map[Key]string),
	}
}

// GetOrCompute returns the cached directory for key, computing and storing it
// on a miss. Failed computations are not stored. The second return value
// reports whether the value came from the cache.
func (c *Cache) GetOrCompute(key Key, compute func() (string, error)) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dir, ok := c.entries[key]; ok {
		return dir, true, nil
	}

	dir, err := compute()
	if err != nil {
		return "", false, err
	}
	c.entries[key] = dir
	return dir, false, nil
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
