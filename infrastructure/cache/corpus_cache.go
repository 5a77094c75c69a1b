// Package cache provides the single-slot corpus cache used by verification.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/facegate/facegate/domain/embedding"
	"github.com/facegate/facegate/infrastructure/similarity"
	"github.com/facegate/facegate/internal/config"
)

// snapshotKey is the singleflight key; there is exactly one cached corpus.
const snapshotKey = "corpus"

// Snapshot pairs a corpus with its precomputed comparison matrices.
// Both are immutable once built and shared between concurrent verifications.
type Snapshot struct {
	corpus   embedding.Corpus
	prepared *similarity.PreparedCorpus
}

// Corpus returns the snapshot corpus.
func (s *Snapshot) Corpus() embedding.Corpus { return s.corpus }

// Prepared returns the precomputed comparison matrices.
func (s *Snapshot) Prepared() *similarity.PreparedCorpus { return s.prepared }

// Info describes the current cache slot for diagnostics.
type Info struct {
	Present   bool          `json:"present"`
	Count     int           `json:"count"`
	Age       time.Duration `json:"age"`
	ExpiresIn time.Duration `json:"expires_in"`
}

// CorpusCache holds at most one corpus snapshot with a TTL. Reads within the
// TTL are served from memory; expired or missing slots trigger a store fetch
// that concurrent callers coalesce on. Writers invalidate explicitly so a
// freshly registered user is matchable on the very next verification.
type CorpusCache struct {
	store      embedding.Store
	engine     *similarity.Engine
	ttl        time.Duration
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger

	mu       sync.RWMutex
	snapshot *Snapshot

	group singleflight.Group

	// now is swappable for TTL tests.
	now func() time.Time
}

// NewCorpusCache creates a CorpusCache.
func NewCorpusCache(
	store embedding.Store,
	engine *similarity.Engine,
	ttl time.Duration,
	storeCfg config.StoreConfig,
	logger *slog.Logger,
) *CorpusCache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = config.DefaultCacheTTL
	}
	return &CorpusCache{
		store:      store,
		engine:     engine,
		ttl:        ttl,
		maxRetries: storeCfg.MaxRetries(),
		retryDelay: storeCfg.RetryDelay(),
		logger:     logger,
		now:        time.Now,
	}
}

// Snapshot returns the cached corpus snapshot, fetching from the store when
// the slot is empty or expired. Concurrent cache misses share one fetch.
// A store failure after bounded retries surfaces embedding.ErrStoreUnavailable;
// the cache never degrades to an empty corpus on error.
func (c *CorpusCache) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := c.fresh(); snap != nil {
		return snap, nil
	}

	v, err, _ := c.group.Do(snapshotKey, func() (any, error) {
		// A concurrent caller may have refilled the slot while this one
		// was queued on the flight group.
		if snap := c.fresh(); snap != nil {
			return snap, nil
		}
		return c.refetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate clears the cache slot. The next read refetches from the store.
func (c *CorpusCache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()
	c.logger.Debug("corpus cache invalidated")
}

// Inspect reports the current cache state without touching the store.
func (c *CorpusCache) Inspect() Info {
	c.mu.RLock()
	snap := c.snapshot
	c.mu.RUnlock()

	if snap == nil {
		return Info{}
	}

	age := snap.corpus.Age(c.now())
	expiresIn := c.ttl - age
	if expiresIn < 0 {
		expiresIn = 0
	}
	return Info{
		Present:   true,
		Count:     snap.corpus.Len(),
		Age:       age,
		ExpiresIn: expiresIn,
	}
}

// fresh returns the snapshot if present and within TTL, else nil.
func (c *CorpusCache) fresh() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return nil
	}
	if c.snapshot.corpus.Age(c.now()) > c.ttl {
		return nil
	}
	return c.snapshot
}

// refetch reads the full active corpus from the store with bounded retries,
// prepares the comparison matrices, and installs the new snapshot.
func (c *CorpusCache) refetch(ctx context.Context) (*Snapshot, error) {
	var records []embedding.Record
	var err error

	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		records, err = c.store.FetchAllActive(ctx)
		if err == nil {
			break
		}
		c.logger.WarnContext(ctx, "corpus fetch failed",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)
		if attempt == attempts {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}

	corpus := embedding.NewCorpus(records, c.now())
	snap := &Snapshot{
		corpus:   corpus,
		prepared: c.engine.Prepare(corpus),
	}

	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()

	if corpus.Empty() {
		c.logger.WarnContext(ctx, "corpus is empty, no user can match")
	}
	c.logger.InfoContext(ctx, "corpus cache refreshed",
		"count", corpus.Len(),
		"ttl", c.ttl,
	)
	return snap, nil
}
