package pluggable

import (
	"sync"
	"time"
)

// ModuleCacheEntry is a loaded module held by a ModuleCache
type ModuleCacheEntry struct {
	Key      string
	Module   *Module
	LoadedAt time.Time
}

// ModuleCache memoizes imported modules by normalized location. A cache is
// created by the host and injected into the ModuleLoader, entries are never
// evicted.
type ModuleCache interface {
	Load(key string) (*ModuleCacheEntry, bool)
	Store(entry *ModuleCacheEntry)
	Len() int
}

// MemoryModuleCache is an in-memory ModuleCache that is safe for concurrent
// use.
type MemoryModuleCache struct {
	mu      sync.RWMutex
	entries map[string]*ModuleCacheEntry
}

// NewMemoryModuleCache creates an empty cache
func NewMemoryModuleCache() *MemoryModuleCache {
	return &MemoryModuleCache{entries: map[string]*ModuleCacheEntry{}}
}

// Load returns the entry for key
func (c *MemoryModuleCache) Load(key string) (*ModuleCacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	return e, ok
}

// Store adds or replaces the entry for entry.Key
func (c *MemoryModuleCache) Store(entry *ModuleCacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entry.Key] = entry
}

// Len returns the number of cached modules
func (c *MemoryModuleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

var _ ModuleCache = (*MemoryModuleCache)(nil)

// keyedLocks hands out one mutex per key so that work for the same key is
// serialized while work for different keys runs in parallel
type keyedLocks struct {
	locks sync.Map
}

// lock obtains the mutex for key and returns the function that releases it
func (k *keyedLocks) lock(key string) func() {
	// lazy instantiate the lock
	l, _ := k.locks.LoadOrStore(key, &sync.Mutex{})

	l.(*sync.Mutex).Lock()

	return func() {
		l.(*sync.Mutex).Unlock()
	}
}
