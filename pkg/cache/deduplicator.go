package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/snow-ghost/asp/core"
)

// Deduplicator lets concurrent identical runs share one solver process
type Deduplicator struct {
	group singleflight.Group
	mu    sync.RWMutex
	stats map[CacheKey]*DedupStats
}

// DedupStats represents deduplication statistics
type DedupStats struct {
	Requests     int64 `json:"requests"`
	Deduplicated int64 `json:"deduplicated"`
	CacheHits    int64 `json:"cache_hits"`
}

// NewDeduplicator creates a new deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		stats: make(map[CacheKey]*DedupStats),
	}
}

// ExecuteWithCache serves key from cache, or runs fn once for all
// concurrent callers and caches its answer sets. Failed runs are not cached.
func (d *Deduplicator) ExecuteWithCache(
	ctx context.Context,
	key CacheKey,
	cache *LRUCache,
	ttl time.Duration,
	fn func() ([]core.Model, error),
) ([]core.Model, error) {
	if cache != nil {
		if entry, exists := cache.Get(key); exists {
			d.updateStats(key, false, true)
			return slices.Clone(entry.Models), nil
		}
	}

	d.updateStats(key, false, false)

	ch := d.group.DoChan(string(key), func() (interface{}, error) {
		models, err := fn()
		if err != nil {
			return nil, err
		}
		if cache != nil {
			cache.Set(key, models, ttl)
		}
		return models, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			d.updateStats(key, true, false)
		}
		return slices.Clone(res.Val.([]core.Model)), nil
	}
}

// updateStats updates deduplication statistics
func (d *Deduplicator) updateStats(key CacheKey, deduplicated, cacheHit bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats, exists := d.stats[key]
	if !exists {
		stats = &DedupStats{}
		d.stats[key] = stats
	}

	switch {
	case cacheHit:
		stats.Requests++
		stats.CacheHits++
	case deduplicated:
		stats.Deduplicated++
	default:
		stats.Requests++
	}
}

// GetStats returns the statistics of one key
func (d *Deduplicator) GetStats(key CacheKey) *DedupStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if stats, exists := d.stats[key]; exists {
		copied := *stats
		return &copied
	}
	return &DedupStats{}
}

// Reset clears all statistics
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats = make(map[CacheKey]*DedupStats)
}
