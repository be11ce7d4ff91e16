package retrieval

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/cram/internal/cache"
	"github.com/ppiankov/cram/internal/model"
)

// CachedRetriever memoizes successful searches and collapses identical
// in-flight searches into one upstream call. Errors are never cached.
type CachedRetriever struct {
	next      Retriever
	cache     cache.Cache
	ttl       time.Duration
	namespace string
	group     singleflight.Group
	logger    *zap.Logger
}

// NewCachedRetriever wraps next. namespace separates caches of different
// collections sharing one cache directory.
func NewCachedRetriever(next Retriever, c cache.Cache, ttl time.Duration, namespace string, logger *zap.Logger) *CachedRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRetriever{
		next:      next,
		cache:     c,
		ttl:       ttl,
		namespace: namespace,
		logger:    logger,
	}
}

// Search returns cached hits when present, otherwise queries next
func (c *CachedRetriever) Search(ctx context.Context, query string, filters map[string]string, topK int) ([]model.EvidenceHit, error) {
	key := c.key(query, filters, topK)

	if data, ok := c.cache.Get(key); ok {
		var hits []model.EvidenceHit
		if err := json.Unmarshal(data, &hits); err == nil {
			return hits, nil
		}
		_ = c.cache.Delete(key)
	}

	// the shared search outlives any one caller; each caller still stops
	// waiting when its own ctx ends
	flight := c.group.DoChan(key, func() (any, error) {
		hits, err := c.next.Search(context.WithoutCancel(ctx), query, filters, topK)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(hits); err == nil {
			if err := c.cache.Set(key, data, c.ttl); err != nil {
				c.logger.Warn("cache write failed", zap.Error(err))
			}
		}
		return hits, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-flight:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	// callers sharing a flight must not share the backing array
	hits := res.Val.([]model.EvidenceHit)
	return append([]model.EvidenceHit(nil), hits...), nil
}

func (c *CachedRetriever) key(query string, filters map[string]string, topK int) string {
	parts := []string{c.namespace, query, strconv.Itoa(topK)}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+filters[k])
	}
	return cache.CacheKey("retrieval", strings.Join(parts, "\x1e"))
}
