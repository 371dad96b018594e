package cache

import "time"

// LayeredCache checks memory first and falls back to disk. Without a
// directory it is memory only.
type LayeredCache struct {
	memory *MemoryCache
	disk   *DiskCache
}

// NewLayeredCache creates a layered cache. An empty diskDir disables the
// disk layer.
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	c := &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
	}
	if diskDir != "" {
		c.disk = NewDiskCache(diskDir, diskTTL)
	}
	return c
}

// Get retrieves a value, promoting disk hits into memory
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}
	if c.disk == nil {
		return nil, false
	}

	val, found := c.disk.Get(key)
	if !found {
		return nil, false
	}
	_ = c.memory.Set(key, val, 0)
	return val, true
}

// Set stores a value in every layer
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	if c.disk == nil {
		return nil
	}
	return c.disk.Set(key, value, ttl)
}

// Delete removes a value from every layer
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	if c.disk == nil {
		return nil
	}
	return c.disk.Delete(key)
}

// Clear empties every layer
func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	if c.disk == nil {
		return nil
	}
	return c.disk.Clear()
}
