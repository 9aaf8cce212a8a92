package release

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/controlx2/version-api/pkg/cache"
	"github.com/controlx2/version-api/pkg/logging"
)

const (
	DefaultCheckInterval = time.Hour

	snapshotKey   = "latest-release"
	refreshFlight = "refresh"
)

// Snapshot is the persisted form of a successful selection
type Snapshot struct {
	Release   Release   `json:"release"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Cache memoizes the selected release so upstream is polled at most once per
// check interval. Concurrent refreshes are collapsed into a single fetch.
type Cache struct {
	source   Source
	selector *Selector
	interval time.Duration
	now      func() time.Time
	store    cache.Cache

	mu        sync.RWMutex
	current   *Release
	lastFetch time.Time // zero until a fetch selects a release

	flight singleflight.Group
}

// CacheOption configures a Cache
type CacheOption func(*Cache)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// WithSnapshotStore persists successful selections so a restarted process
// can skip the first upstream fetch
func WithSnapshotStore(store cache.Cache) CacheOption {
	return func(c *Cache) {
		c.store = store
	}
}

// NewCache creates a release cache
func NewCache(source Source, selector *Selector, interval time.Duration, opts ...CacheOption) *Cache {
	c := &Cache{
		source:   source,
		selector: selector,
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the current release, refreshing it from upstream when the
// check interval has elapsed or the cache was invalidated. A nil release
// with a nil error means upstream had nothing applicable. On a fetch error
// the cached state is left untouched.
//
// The shared fetch is detached from the cancellation of the caller that
// started it; each caller stops waiting when its own ctx is done.
func (c *Cache) Get(ctx context.Context) (*Release, error) {
	if r, ok := c.cached(c.now()); ok {
		return r, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(refreshFlight, func() (interface{}, error) {
		return c.refresh(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Release), nil
	}
}

// Invalidate forces the next Get to fetch from upstream. The current
// release is kept.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.lastFetch = time.Time{}
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Delete(context.Background(), snapshotKey); err != nil {
			logging.Logger.Warn("Failed to delete release snapshot", zap.Error(err))
		}
	}
	logging.Logger.Info("Release cache invalidated")
}

// Warm seeds the cache from the snapshot store if a snapshot younger than
// the check interval exists. It reports whether the cache was seeded.
func (c *Cache) Warm(ctx context.Context) bool {
	if c.store == nil {
		return false
	}

	var snap Snapshot
	if err := c.store.Get(ctx, snapshotKey, &snap); err != nil {
		if !errors.Is(err, cache.ErrCacheNotFound) && !errors.Is(err, cache.ErrCacheExpired) {
			logging.Logger.Warn("Failed to read release snapshot", zap.Error(err))
		}
		return false
	}
	if c.now().Sub(snap.FetchedAt) >= c.interval {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	r := snap.Release
	c.current = &r
	c.lastFetch = snap.FetchedAt

	logging.Logger.Info("Release cache warmed from snapshot",
		zap.String("release", r.Name),
		zap.Time("fetched_at", snap.FetchedAt))
	return true
}

func (c *Cache) cached(now time.Time) (*Release, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastFetch.IsZero() || now.Sub(c.lastFetch) >= c.interval {
		return nil, false
	}
	return c.current, true
}

func (c *Cache) refresh(ctx context.Context) (*Release, error) {
	now := c.now()
	// Another flight may have refreshed between the read check and here.
	if r, ok := c.cached(now); ok {
		return r, nil
	}

	releases, err := c.source.FetchRecent(ctx)
	if err != nil {
		logging.Logger.Error("Failed to fetch releases", zap.Error(err))
		return nil, err
	}

	selected := c.selector.Select(releases, now)

	c.mu.Lock()
	c.current = selected
	// A fetch with no applicable release does not restart the interval.
	if selected != nil {
		c.lastFetch = now
	}
	c.mu.Unlock()

	if selected == nil {
		logging.Logger.Info("latest_release",
			zap.Int("candidates", len(releases)),
			zap.Bool("found", false))
		return nil, nil
	}

	logging.Logger.Info("latest_release",
		zap.Int("candidates", len(releases)),
		zap.Bool("found", true),
		zap.String("name", selected.Name),
		zap.String("url", selected.HTMLURL),
		zap.Time("created_at", selected.CreatedAt))

	c.persist(ctx, Snapshot{Release: *selected, FetchedAt: now})
	return selected, nil
}

func (c *Cache) persist(ctx context.Context, snap Snapshot) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, snapshotKey, snap, c.interval); err != nil {
		logging.Logger.Warn("Failed to store release snapshot", zap.Error(err))
	}
}
