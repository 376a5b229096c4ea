// Package snapshot caches the parsed base dataset in a shared key-value store
// so that several instances do not each re-parse the same source file.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/claimsearch/internal/dataset"
	"github.com/kailas-cloud/claimsearch/internal/db"
	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
)

// maxDecodedBytes bounds a decompressed snapshot.
const maxDecodedBytes = 1 << 30

// source is the consumer interface for the wrapped dataset provider.
type source interface {
	Load(ctx context.Context) (claim.Set, error)
	Fingerprint(ctx context.Context) (string, error)
}

// store is the consumer interface for the snapshot cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Provider serves the base set from the snapshot cache, falling back to
// the source on a miss and writing the result back. Cache failures are
// logged and never fail a load.
type Provider struct {
	inner      source
	store      store
	keyPrefix  string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"error"), passed explicitly.
func New(
	inner source,
	s store,
	keyPrefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		inner:      inner,
		store:      s,
		keyPrefix:  keyPrefix,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Load returns the cached snapshot for the source's current fingerprint or
// loads the source.
func (p *Provider) Load(ctx context.Context) (claim.Set, error) {
	fp, err := p.inner.Fingerprint(ctx)
	if err != nil {
		p.incCache("error")
		p.logger.Warn("Failed to fingerprint dataset, bypassing snapshot cache", zap.Error(err))
		return p.loadInner(ctx)
	}
	key := p.cacheKey(fp)

	if set, ok := p.getFromCache(ctx, key); ok {
		p.incCache("hit")
		return set, nil
	}
	p.incCache("miss")

	set, err := p.loadInner(ctx)
	if err != nil {
		return claim.Set{}, err
	}
	p.putToCache(ctx, key, set)
	return set, nil
}

func (p *Provider) loadInner(ctx context.Context) (claim.Set, error) {
	set, err := p.inner.Load(ctx)
	if err != nil {
		return claim.Set{}, fmt.Errorf("load dataset: %w", err)
	}
	return set, nil
}

func (p *Provider) incCache(result string) {
	if p.cacheTotal != nil {
		p.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (p *Provider) cacheKey(fingerprint string) string {
	return p.keyPrefix + "snapshot:" + fingerprint
}

func (p *Provider) getFromCache(ctx context.Context, key string) (claim.Set, bool) {
	data, err := p.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			p.logger.Warn("Failed to get dataset snapshot", zap.String("key", key), zap.Error(err))
		}
		return claim.Set{}, false
	}
	if len(data) == 0 {
		return claim.Set{}, false
	}

	rows, err := decode(data)
	if err != nil {
		p.logger.Warn("Failed to parse dataset snapshot", zap.String("key", key), zap.Error(err))
		return claim.Set{}, false
	}

	p.logger.Info("dataset snapshot hit", zap.String("key", key), zap.Int("rows", len(rows)))
	return dataset.Build(rows), true
}

func (p *Provider) putToCache(ctx context.Context, key string, set claim.Set) {
	data, err := encode(set)
	if err != nil {
		p.logger.Warn("Failed to encode dataset snapshot", zap.Error(err))
		return
	}
	if err := p.store.SetWithTTL(ctx, key, data, p.ttl); err != nil {
		p.logger.Warn("Failed to cache dataset snapshot", zap.String("key", key), zap.Error(err))
	}
}
