package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/facegate/facegate/domain/embedding"
	"github.com/facegate/facegate/infrastructure/cache"
)

// Health status values.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// ComponentCheck reports the state of one dependency.
type ComponentCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthReport aggregates component checks with cache diagnostics.
type HealthReport struct {
	Status     string           `json:"status"`
	Components []ComponentCheck `json:"components"`
	Cache      cache.Info       `json:"cache"`
}

// Health performs liveness and readiness checks against the service
// dependencies.
type Health struct {
	store        embedding.Store
	cache        *cache.CorpusCache
	checkTimeout time.Duration
	logger       *slog.Logger
}

// NewHealth creates a new Health service.
func NewHealth(store embedding.Store, corpusCache *cache.CorpusCache, checkTimeout time.Duration, logger *slog.Logger) *Health {
	if logger == nil {
		logger = slog.Default()
	}
	if checkTimeout <= 0 {
		checkTimeout = 5 * time.Second
	}
	return &Health{
		store:        store,
		cache:        corpusCache,
		checkTimeout: checkTimeout,
		logger:       logger,
	}
}

// Ready reports whether the service can serve traffic. The store must be
// reachable; the cache warms lazily and does not gate readiness.
func (h *Health) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.checkTimeout)
	defer cancel()
	return h.store.Ping(ctx)
}

// Full runs every component check and returns an aggregate report.
func (h *Health) Full(ctx context.Context) HealthReport {
	report := HealthReport{
		Status: StatusOK,
		Cache:  h.cache.Inspect(),
	}

	storeCheck := ComponentCheck{Name: "store", Status: StatusOK}
	if err := h.Ready(ctx); err != nil {
		storeCheck.Status = StatusDegraded
		storeCheck.Error = err.Error()
		report.Status = StatusDegraded
		h.logger.WarnContext(ctx, "store health check failed", "error", err)
	}
	report.Components = append(report.Components, storeCheck)

	cacheCheck := ComponentCheck{Name: "cache", Status: StatusOK}
	report.Components = append(report.Components, cacheCheck)

	return report
}
