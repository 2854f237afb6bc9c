package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

// Invalidation reasons, recorded as metric labels.
const (
	InvalidateManual     = "manual"
	InvalidateFileChange = "file_change"
)

const defaultLoadTimeout = 30 * time.Second

// cacheKey identifies one version of the data file. A cached Dataset is
// valid while the file's key is unchanged.
type cacheKey struct {
	modTime time.Time
	size    int64
}

func keyFor(info os.FileInfo) cacheKey {
	return cacheKey{modTime: info.ModTime(), size: info.Size()}
}

type cacheEntry struct {
	dataset *models.Dataset
	key     cacheKey
}

// DatasetCache memoizes the load of a single data file. Within a validity
// window every caller receives the same *Dataset; concurrent misses share
// one load. Failed loads are not cached.
type DatasetCache struct {
	path        string
	load        LoadFunc
	stat        func(string) (os.FileInfo, error)
	loadTimeout time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics

	mu          sync.RWMutex
	entry       *cacheEntry
	generation  uint64
	lastLoadErr error
	lastLoadAt  time.Time

	flight singleflight.Group
}

type CacheOption func(*DatasetCache)

// WithLoadFunc replaces LoadCSV as the loader.
func WithLoadFunc(fn LoadFunc) CacheOption {
	return func(c *DatasetCache) { c.load = fn }
}

func WithMetrics(m *observability.Metrics) CacheOption {
	return func(c *DatasetCache) { c.metrics = m }
}

func WithLoadTimeout(d time.Duration) CacheOption {
	return func(c *DatasetCache) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

func withStat(fn func(string) (os.FileInfo, error)) CacheOption {
	return func(c *DatasetCache) { c.stat = fn }
}

func NewDatasetCache(path string, logger *slog.Logger, opts ...CacheOption) *DatasetCache {
	c := &DatasetCache{
		path:        path,
		load:        LoadCSV,
		stat:        os.Stat,
		loadTimeout: defaultLoadTimeout,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *DatasetCache) Path() string {
	return c.path
}

// Get returns the cached Dataset when the file is unchanged since it was
// read, otherwise loads it.
func (c *DatasetCache) Get(ctx context.Context) (*models.Dataset, error) {
	info, err := c.stat(c.path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", apperrors.ErrDataUnavailable, c.path, err)
	}
	key := keyFor(info)

	c.mu.RLock()
	entry, gen := c.entry, c.generation
	c.mu.RUnlock()

	if entry != nil && entry.key == key {
		c.observeLookup("hit")
		return entry.dataset, nil
	}
	c.observeLookup("miss")

	flightKey := fmt.Sprintf("%d:%d:%d", gen, key.modTime.UnixNano(), key.size)
	v, err, shared := c.flight.Do(flightKey, func() (any, error) {
		return c.fill(ctx, key, gen)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("dataset load shared", "path", c.path)
	}
	return v.(*models.Dataset), nil
}

func (c *DatasetCache) fill(ctx context.Context, key cacheKey, gen uint64) (*models.Dataset, error) {
	c.mu.RLock()
	entry := c.entry
	c.mu.RUnlock()
	if entry != nil && entry.key == key {
		return entry.dataset, nil
	}

	// The load outlives any single request that triggered it.
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
	defer cancel()

	start := time.Now()
	ds, err := c.load(loadCtx, c.path)
	duration := time.Since(start)
	if err != nil && !errors.Is(err, apperrors.ErrDataUnavailable) {
		err = fmt.Errorf("%w: %w", apperrors.ErrDataUnavailable, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastLoadAt = time.Now()
	c.lastLoadErr = err

	if err != nil {
		c.observeLoad("error", duration, 0)
		c.logger.Error("dataset load failed", "path", c.path, "error", err)
		return nil, err
	}

	c.observeLoad("success", duration, ds.Len())
	c.logger.Info("dataset loaded",
		"path", c.path,
		"records", ds.Len(),
		"duration", duration,
	)

	// An invalidation that raced with this load leaves the result
	// uncached; the caller still gets what it asked for.
	if c.generation == gen {
		c.entry = &cacheEntry{dataset: ds, key: key}
	}
	return ds, nil
}

// Invalidate drops the cached Dataset. The next Get re-reads the file even
// if its modification time has not changed.
func (c *DatasetCache) Invalidate(reason string) {
	c.mu.Lock()
	c.entry = nil
	c.generation++
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.Invalidations.WithLabelValues(reason).Inc()
	}
	c.logger.Info("dataset cache invalidated", "path", c.path, "reason", reason)
}

func (c *DatasetCache) Stats() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := map[string]any{
		"path":       c.path,
		"cached":     c.entry != nil,
		"generation": c.generation,
	}
	if c.entry != nil {
		stats["record_count"] = c.entry.dataset.Len()
		stats["loaded_at"] = c.entry.dataset.LoadedAt
		stats["source_mod_time"] = c.entry.key.modTime
	}
	if !c.lastLoadAt.IsZero() {
		stats["last_load_at"] = c.lastLoadAt
	}
	if c.lastLoadErr != nil {
		stats["last_error"] = c.lastLoadErr.Error()
	}
	return stats
}

func (c *DatasetCache) observeLookup(result string) {
	if c.metrics != nil {
		c.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (c *DatasetCache) observeLoad(status string, d time.Duration, records int) {
	if c.metrics == nil {
		return
	}
	c.metrics.DatasetLoads.WithLabelValues(status).Inc()
	c.metrics.LoadDuration.Observe(d.Seconds())
	if status == "success" {
		c.metrics.DatasetRecords.Set(float64(records))
	}
}
