package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const sharedLabCacheKey = "labs:active"

type labStore interface {
	ListActiveIDs(ctx context.Context) ([]string, error)
}

// LabCacheOptions configures the lab id cache.
type LabCacheOptions struct {
	TTL          time.Duration
	ServeStale   bool
	CentralLabID string
}

// LabIDCache caches the active lab ids with a TTL. When a refresh fails and ServeStale is set,
// the last good list keeps being served.
type LabIDCache struct {
	source  labStore
	shared  *CacheService
	opts    LabCacheOptions
	now     func() time.Time
	logger  *zap.Logger
	refresh sync.Mutex

	mu        sync.RWMutex
	ids       map[string]struct{}
	list      []string
	fetchedAt time.Time
	loaded    bool
}

// NewLabIDCache constructs the cache. shared may be nil to keep the cache process local.
func NewLabIDCache(source labStore, shared *CacheService, opts LabCacheOptions, now func() time.Time, logger *zap.Logger) *LabIDCache {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LabIDCache{source: source, shared: shared, opts: opts, now: now, logger: logger}
}

func (c *LabIDCache) snapshot() ([]string, bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fresh := c.loaded && c.now().Sub(c.fetchedAt) < c.opts.TTL
	return c.list, c.loaded, fresh
}

// Get returns the active lab ids, refreshing when the cached list has expired.
func (c *LabIDCache) Get(ctx context.Context) ([]string, error) {
	if list, _, fresh := c.snapshot(); fresh {
		return list, nil
	}

	c.refresh.Lock()
	defer c.refresh.Unlock()
	if list, _, fresh := c.snapshot(); fresh {
		return list, nil
	}

	list, err := c.load(ctx)
	if err != nil {
		stale, loaded, _ := c.snapshot()
		if c.opts.ServeStale && loaded {
			c.logger.Warn("lab directory refresh failed, serving stale ids", zap.Error(err), zap.Int("labs", len(stale)))
			return stale, nil
		}
		return nil, err
	}
	return list, nil
}

// Refresh reloads the lab ids regardless of age.
func (c *LabIDCache) Refresh(ctx context.Context) ([]string, error) {
	c.refresh.Lock()
	defer c.refresh.Unlock()
	return c.load(ctx)
}

// Contains reports whether labID is the central store or an active lab.
func (c *LabIDCache) Contains(ctx context.Context, labID string) (bool, error) {
	if labID == "" {
		return false, nil
	}
	if c.opts.CentralLabID != "" && labID == c.opts.CentralLabID {
		return true, nil
	}
	if _, err := c.Get(ctx); err != nil {
		return false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ids[labID]
	return ok, nil
}

func (c *LabIDCache) load(ctx context.Context) ([]string, error) {
	var ids []string
	hit := false
	if c.shared.Enabled() {
		var err error
		hit, err = c.shared.Get(ctx, sharedLabCacheKey, &ids)
		if err != nil {
			hit = false
		}
	}
	if !hit {
		fetched, err := c.source.ListActiveIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active labs: %w", err)
		}
		ids = fetched
		if c.shared.Enabled() {
			if err := c.shared.Set(ctx, sharedLabCacheKey, ids, c.opts.TTL); err != nil {
				c.logger.Warn("failed to publish lab ids to shared cache", zap.Error(err))
			}
		}
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	c.mu.Lock()
	c.ids = set
	c.list = ids
	c.fetchedAt = c.now()
	c.loaded = true
	c.mu.Unlock()
	return ids, nil
}
