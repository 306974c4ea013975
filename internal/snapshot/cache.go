package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const cacheFileName = "scan-cache.json"

// Cache persists the most recent snapshot. Each successful scan
// overwrites the previous one; a missing or malformed cache means
// "no prior scan" and is never an error.
type Cache struct {
	path string
}

// NewCache stores the cache under dir.
func NewCache(dir string) *Cache {
	return &Cache{path: filepath.Join(dir, cacheFileName)}
}

// Path returns the cache file location.
func (c *Cache) Path() string { return c.path }

// Load returns the cached snapshot, or (nil, nil) when there is none.
func (c *Cache) Load() (*Snapshot, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil
	}
	if snap.ID == "" {
		return nil, nil
	}
	return &snap, nil
}

// Save atomically replaces the cache with snap.
func (c *Cache) Save(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace snapshot cache: %w", err)
	}
	return nil
}
