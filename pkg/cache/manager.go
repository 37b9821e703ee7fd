package cache

import (
	"context"
	"fmt"

	"github.com/snow-ghost/asp/core"
)

// CacheManager manages caching and deduplication of solver runs
type CacheManager struct {
	cache        *LRUCache
	deduplicator *Deduplicator
	config       *CacheConfig
}

// NewCacheManager creates a new cache manager
func NewCacheManager(config *CacheConfig) (*CacheManager, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}
	cache, err := NewLRUCache(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return &CacheManager{
		cache:        cache,
		deduplicator: NewDeduplicator(),
		config:       config,
	}, nil
}

// ExecuteWithCache returns the answer sets of req, running fn at most once
// per key while its entry is fresh
func (cm *CacheManager) ExecuteWithCache(
	ctx context.Context,
	req CacheRequest,
	fn func() ([]core.Model, error),
) ([]core.Model, error) {
	key, err := GenerateKey(req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate cache key: %w", err)
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = cm.config.DefaultTTL
	}

	return cm.deduplicator.ExecuteWithCache(ctx, key, cm.cache, ttl, fn)
}

// Delete drops the cached answer sets of req
func (cm *CacheManager) Delete(req CacheRequest) error {
	key, err := GenerateKey(req)
	if err != nil {
		return fmt.Errorf("failed to generate cache key: %w", err)
	}
	cm.cache.Delete(key)
	return nil
}

// Clear removes all cached runs and resets statistics
func (cm *CacheManager) Clear() {
	cm.cache.Clear()
	cm.deduplicator.Reset()
}

// Stats returns cache statistics
func (cm *CacheManager) Stats() CacheStats {
	return cm.cache.Stats()
}

// DedupStats returns the deduplication statistics of req
func (cm *CacheManager) DedupStats(req CacheRequest) *DedupStats {
	key, err := GenerateKey(req)
	if err != nil {
		return &DedupStats{}
	}
	return cm.deduplicator.GetStats(key)
}

// Close stops background cleanup
func (cm *CacheManager) Close() {
	cm.cache.Close()
}
