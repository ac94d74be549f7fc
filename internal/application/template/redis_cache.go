package template

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lifeplan/service/internal/domain/planner"
	"github.com/lifeplan/service/internal/infrastructure/cache"
)

// cacheTTL bounds how long a compiled template is trusted before the
// next Load re-reads the artefact from disk. Templates change rarely
// (a new version directory, never an in-place edit), so a generous TTL
// is safe.
const cacheTTL = 10 * time.Minute

// CachedRepository decorates Repository with a Redis-backed cache so
// hot template keys avoid a filesystem read and graph revalidation on
// every plan creation.
type CachedRepository struct {
	inner *Repository
	cache *cache.RedisCache
}

// NewCachedRepository wraps inner with a Redis cache. A cache miss or
// error always falls back to inner.
func NewCachedRepository(inner *Repository, redisCache *cache.RedisCache) *CachedRepository {
	return &CachedRepository{inner: inner, cache: redisCache}
}

// Load returns the cached template for templateKey if present and
// valid JSON, otherwise loads it via the wrapped Repository and caches
// the result. Cache errors are never fatal: a Redis outage degrades to
// always loading from disk. Takes no context, matching
// planservice.TemplateLoader: template lookups never block on
// caller-cancellable work beyond the fixed Redis dial/command timeouts
// cache.RedisCache itself enforces.
func (r *CachedRepository) Load(templateKey string) (*planner.Template, error) {
	ctx := context.Background()
	cacheKey := "template:" + templateKey

	if raw, err := r.cache.Get(ctx, cacheKey); err == nil {
		tmpl := new(planner.Template)
		if jsonErr := json.Unmarshal([]byte(raw), tmpl); jsonErr == nil {
			return tmpl, nil
		}
	}

	tmpl, err := r.inner.Load(templateKey)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(tmpl); err == nil {
		_ = r.cache.Set(ctx, cacheKey, string(encoded), cacheTTL)
	}
	return tmpl, nil
}
