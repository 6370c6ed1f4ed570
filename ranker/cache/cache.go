/*
	cache package memoizes full rankings per query signature. Entries are
	bounded by count (least recently used goes first) and by age, and a
	missing entry is computed at most once no matter how many callers ask
	for it concurrently.
*/

package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/mycok/sherlook/ranker"
)

// Static and compile-time check to ensure Cache implements
// prometheus.Collector.
var _ prometheus.Collector = (*Cache)(nil)

// LoadFunc computes the ranking of a key missing from the cache.
type LoadFunc func() (*ranker.RankingResult, error)

// Stats is a snapshot of the cache counters.
type Stats struct {
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
	Loads        uint64 `json:"loads"`
	LoadFailures uint64 `json:"loadFailures"`
	Evictions    uint64 `json:"evictions"`
	Size         int    `json:"size"`
}

type entry struct {
	result    *ranker.RankingResult
	createdAt time.Time
}

// Cache is a size and time bounded ranking cache that is safe for
// concurrent use.
type Cache struct {
	cfg     Config
	entries *lru.Cache[string, *entry]
	group   singleflight.Group

	// mu serialises writes to entries so that storing a loaded ranking,
	// dropping an expired entry and purging never interleave.
	mu sync.Mutex
	// purges is bumped by every Purge. A load only stores its result if no
	// purge happened while it ran.
	purges atomic.Uint64

	hits, misses, loads, loadFailures, evictions atomic.Uint64

	hitsDesc, missesDesc, loadsDesc, loadFailuresDesc, evictionsDesc, sizeDesc *prometheus.Desc
}

// New creates and returns a fully configured Cache instance.
func New(cfg Config) (*Cache, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("ranking cache: config validation failed: %w", err)
	}

	c := &Cache{
		cfg:              cfg,
		hitsDesc:         newDesc("hits_total", "Number of rankings served from the cache."),
		missesDesc:       newDesc("misses_total", "Number of lookups that found no valid entry."),
		loadsDesc:        newDesc("loads_total", "Number of rankings computed by the cache."),
		loadFailuresDesc: newDesc("load_failures_total", "Number of ranking computations that failed."),
		evictionsDesc:    newDesc("evictions_total", "Number of entries dropped for size, age or a purge."),
		sizeDesc:         newDesc("entries", "Number of entries currently cached."),
	}

	entries, err := lru.NewWithEvict[string, *entry](cfg.MaxEntries, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("ranking cache: %w", err)
	}
	c.entries = entries

	return c, nil
}

// GetOrCompute returns the cached ranking for key, calling loadFn when no
// valid entry exists. Concurrent callers for the same missing key share a
// single loadFn invocation and observe the same result. Failed loads are
// not cached.
func (c *Cache) GetOrCompute(key string, loadFn LoadFunc) (*ranker.RankingResult, error) {
	if res, found := c.lookup(key); found {
		c.hits.Add(1)
		return res, nil
	}
	c.misses.Add(1)

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have stored the entry between the first
		// lookup and this flight.
		if res, found := c.lookup(key); found {
			return res, nil
		}

		gen := c.purges.Load()

		c.loads.Add(1)
		res, err := loadFn()
		if err != nil {
			c.loadFailures.Add(1)
			return nil, err
		}

		if !c.store(key, &entry{result: res, createdAt: c.cfg.Clock.Now()}, gen) {
			c.cfg.Logger.WithField("key", key).Debug("cache purged during load; ranking not cached")

			return res, nil
		}
		c.cfg.Logger.WithField("key", key).Debug("cached ranking")

		return res, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		c.cfg.Logger.WithField("key", key).Debug("shared in-flight ranking")
	}

	return v.(*ranker.RankingResult), nil
}

// Purge drops every cached entry. Loads already in flight return their
// result to their callers but do not cache it.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.purges.Add(1)
	c.entries.Purge()
	c.mu.Unlock()

	c.cfg.Logger.Debug("purged ranking cache")
}

// Len returns the number of cached entries, expired ones included.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Loads:        c.loads.Load(),
		LoadFailures: c.loadFailures.Load(),
		Evictions:    c.evictions.Load(),
		Size:         c.entries.Len(),
	}
}

// Describe implements prometheus.Collector.
func (c *Cache) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hitsDesc
	ch <- c.missesDesc
	ch <- c.loadsDesc
	ch <- c.loadFailuresDesc
	ch <- c.evictionsDesc
	ch <- c.sizeDesc
}

// Collect implements prometheus.Collector.
func (c *Cache) Collect(ch chan<- prometheus.Metric) {
	st := c.Stats()

	ch <- prometheus.MustNewConstMetric(c.hitsDesc, prometheus.CounterValue, float64(st.Hits))
	ch <- prometheus.MustNewConstMetric(c.missesDesc, prometheus.CounterValue, float64(st.Misses))
	ch <- prometheus.MustNewConstMetric(c.loadsDesc, prometheus.CounterValue, float64(st.Loads))
	ch <- prometheus.MustNewConstMetric(c.loadFailuresDesc, prometheus.CounterValue, float64(st.LoadFailures))
	ch <- prometheus.MustNewConstMetric(c.evictionsDesc, prometheus.CounterValue, float64(st.Evictions))
	ch <- prometheus.MustNewConstMetric(c.sizeDesc, prometheus.GaugeValue, float64(st.Size))
}

// lookup returns the entry for key if it has not expired. Expired entries
// are removed.
func (c *Cache) lookup(key string) (*ranker.RankingResult, bool) {
	e, found := c.entries.Get(key)
	if !found {
		return nil, false
	}

	if c.cfg.Clock.Now().Sub(e.createdAt) >= c.cfg.TTL {
		c.removeIfCurrent(key, e)

		return nil, false
	}

	return e.result, true
}

// store caches e under key unless a purge happened after generation gen
// was observed.
func (c *Cache) store(key string, e *entry, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.purges.Load() != gen {
		return false
	}
	c.entries.Add(key, e)

	return true
}

// removeIfCurrent drops the entry for key only while it is still e, leaving
// a fresher entry stored by a concurrent load in place.
func (c *Cache) removeIfCurrent(key string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, found := c.entries.Peek(key); found && cur == e {
		c.entries.Remove(key)
	}
}

func (c *Cache) onEvict(key string, _ *entry) {
	c.evictions.Add(1)
	c.cfg.Logger.WithField("key", key).Debug("evicted ranking")
}

func newDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName("sherlook", "ranking_cache", name), help, nil, nil)
}
