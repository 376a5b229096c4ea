package dataset

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
	"github.com/kailas-cloud/claimsearch/internal/metrics"
)

// Provider loads a base set.
type Provider interface {
	Load(ctx context.Context) (claim.Set, error)
}

// Cached memoizes the first successful Load of its inner provider for the
// lifetime of the process. Failed loads are not cached. Safe for concurrent use;
// concurrent callers wait for a single in-flight load.
type Cached struct {
	inner  Provider
	logger *zap.Logger

	mu     sync.Mutex
	set    claim.Set
	loaded bool
}

// NewCached wraps inner with a process-wide cache.
func NewCached(inner Provider, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{inner: inner, logger: logger}
}

// Load returns the cached base set, loading it on first use.
func (c *Cached) Load(ctx context.Context) (claim.Set, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.set, nil
	}
	set, err := c.inner.Load(ctx)
	if err != nil {
		c.logger.Warn("dataset load failed", zap.Error(err))
		return claim.Set{}, err //nolint:wrapcheck // decorator returns inner error as-is
	}
	c.set = set
	c.loaded = true
	metrics.DatasetRows.Set(float64(set.Len()))
	return set, nil
}

// Loaded reports whether the base set is in memory.
func (c *Cached) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Reset drops the cached set so that the next Load reads the source again.
func (c *Cached) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set = claim.Set{}
	c.loaded = false
}
