package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"flow-orchestrator/backend/pkg/models"

	"github.com/redis/go-redis/v9"
)

const defaultCachePrefix = "orchestrator:kpi:"

// CachedProvider keeps snapshots from another Provider in Redis for a TTL.
// Cache failures fall through to the wrapped provider.
type CachedProvider struct {
	next   Provider
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewCachedProvider wraps next with a Redis-backed snapshot cache.
func NewCachedProvider(next Provider, client redis.UniversalClient, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: defaultCachePrefix,
	}
}

// Snapshot implements Provider.
func (p *CachedProvider) Snapshot(ctx context.Context, slug string) (*models.ConnectorSnapshot, error) {
	slug = normalizeSlug(slug)
	if slug == "" {
		return nil, ErrSlugRequired
	}
	key := p.prefix + slug

	raw, err := p.client.Get(ctx, key).Bytes()
	if err == nil {
		var snap models.ConnectorSnapshot
		if json.Unmarshal(raw, &snap) == nil {
			return &snap, nil
		}
	} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	snap, err := p.next.Snapshot(ctx, slug)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(snap); err == nil {
		p.client.Set(ctx, key, data, p.ttl)
	}
	return snap, nil
}

// Invalidate drops the cached snapshot for slug.
func (p *CachedProvider) Invalidate(ctx context.Context, slug string) error {
	return p.client.Del(ctx, p.prefix+normalizeSlug(slug)).Err()
}
