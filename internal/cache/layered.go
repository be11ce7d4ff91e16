package cache

import (
	"errors"
	"time"
)

// LayeredCache reads through memory to disk and writes to both
type LayeredCache struct {
	memory    Cache
	disk      Cache
	memoryTTL time.Duration
}

// NewLayeredCache creates a memory + disk cache. An empty diskDir gives a
// memory-only cache.
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	c := &LayeredCache{
		memory:    NewMemoryCache(memoryTTL, 10*time.Minute),
		memoryTTL: memoryTTL,
	}
	if diskDir != "" {
		c.disk = NewDiskCache(diskDir, diskTTL)
	}
	return c
}

// Get checks memory first, then disk, promoting disk hits
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}
	if c.disk == nil {
		return nil, false
	}

	if val, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, val, c.memoryTTL)
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers. The memory entry never outlives memoryTTL.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	memTTL := ttl
	if memTTL <= 0 || (c.memoryTTL > 0 && memTTL > c.memoryTTL) {
		memTTL = c.memoryTTL
	}
	if err := c.memory.Set(key, value, memTTL); err != nil {
		return err
	}
	if c.disk == nil {
		return nil
	}
	return c.disk.Set(key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(key string) error {
	errMem := c.memory.Delete(key)
	if c.disk == nil {
		return errMem
	}
	return errors.Join(errMem, c.disk.Delete(key))
}

// Clear removes all values from both layers
func (c *LayeredCache) Clear() error {
	errMem := c.memory.Clear()
	if c.disk == nil {
		return errMem
	}
	return errors.Join(errMem, c.disk.Clear())
}
