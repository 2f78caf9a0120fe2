package cache

import (
	"sync"

	"album-engine/internal/mediatypes"
	"album-engine/internal/metrics"
)

// Cache maps file paths to their metadata records.
type Cache struct {
	mu      sync.Mutex
	records map[string]mediatypes.ImageRecord
	page    []string
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{records: make(map[string]mediatypes.ImageRecord)}
}

// Get returns the record for path.
func (c *Cache) Get(path string) (mediatypes.ImageRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[path]
	return rec, ok
}

// Upsert merges patch into the record stored under path, inserting it if
// absent, and returns the stored result. Zero fields of patch leave the prior
// values in place.
func (c *Cache) Upsert(path string, patch mediatypes.ImageRecord) mediatypes.ImageRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := c.upsertLocked(path, patch)
	metrics.CacheOperationsTotal.WithLabelValues("upsert").Inc()
	metrics.CacheEntries.Set(float64(len(c.records)))
	return rec
}

// UpsertMany merges every record under one lock acquisition, keyed by each
// record's Path.
func (c *Cache) UpsertMany(records []mediatypes.ImageRecord) {
	if len(records) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range records {
		c.upsertLocked(r.Path, r)
	}
	metrics.CacheOperationsTotal.WithLabelValues("upsert").Add(float64(len(records)))
	metrics.CacheEntries.Set(float64(len(c.records)))
}

func (c *Cache) upsertLocked(path string, patch mediatypes.ImageRecord) mediatypes.ImageRecord {
	prev, ok := c.records[path]
	if !ok {
		prev = mediatypes.NewRecord(path)
	}
	rec := mediatypes.Merge(prev, patch)
	rec.Path = path
	c.records[path] = rec
	return rec
}

// Remove deletes the given paths from the map and from the first page and
// returns how many map entries were dropped.
func (c *Cache) Remove(paths ...string) int {
	if len(paths) == 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	gone := make(map[string]struct{}, len(paths))
	removed := 0
	for _, p := range paths {
		if _, ok := c.records[p]; ok {
			delete(c.records, p)
			removed++
		}
		gone[p] = struct{}{}
	}

	kept := c.page[:0]
	for _, p := range c.page {
		if _, drop := gone[p]; !drop {
			kept = append(kept, p)
		}
	}
	c.page = kept

	metrics.CacheOperationsTotal.WithLabelValues("remove").Add(float64(removed))
	metrics.CacheEntries.Set(float64(len(c.records)))
	metrics.CachePageSize.Set(float64(len(c.page)))
	return removed
}

// Count returns the number of cached records.
func (c *Cache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Contains reports whether path has a record.
func (c *Cache) Contains(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.records[path]
	return ok
}

// SetPage merges records into the map and makes them, in the given order,
// the current first page.
func (c *Cache) SetPage(records []mediatypes.ImageRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	page := make([]string, 0, len(records))
	for _, r := range records {
		c.upsertLocked(r.Path, r)
		page = append(page, r.Path)
	}
	c.page = page

	metrics.CacheOperationsTotal.WithLabelValues("set_page").Inc()
	metrics.CacheEntries.Set(float64(len(c.records)))
	metrics.CachePageSize.Set(float64(len(c.page)))
}

// Page returns the first page records in view order.
func (c *Cache) Page() []mediatypes.ImageRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]mediatypes.ImageRecord, 0, len(c.page))
	for _, p := range c.page {
		out = append(out, c.records[p])
	}
	return out
}

// PageLen returns the length of the first page.
func (c *Cache) PageLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.page)
}

// ClearPage empties the first page without touching the map.
func (c *Cache) ClearPage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = nil
	metrics.CacheOperationsTotal.WithLabelValues("clear").Inc()
	metrics.CachePageSize.Set(0)
}

// Paths returns every cached path in no particular order.
func (c *Cache) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.records))
	for p := range c.records {
		out = append(out, p)
	}
	return out
}
