package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/luckykangaroo/backend/internal/domain"
)

// ListingReader is the read surface shared by all repository backends.
type ListingReader interface {
	GetListing(ctx context.Context, id string) (domain.Listing, error)
	BulkGetListings(ctx context.Context, ids []string) ([]domain.Listing, error)
	FindCandidates(ctx context.Context, q CandidateQuery) ([]domain.Listing, error)
}

// CachedRepository is a Redis read-through cache in front of listing reads.
// Candidate queries always hit the backing store; only GetListing and
// BulkGetListings are cached. Cache failures degrade to the backing store.
type CachedRepository struct {
	inner  ListingReader
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedRepository wraps inner with a Redis cache.
func NewCachedRepository(inner ListingReader, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedRepository{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// GetListing serves a listing from cache when present, loading and caching it
// otherwise.
func (c *CachedRepository) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	if l, ok := c.fromCache(ctx, id); ok {
		return l, nil
	}

	l, err := c.inner.GetListing(ctx, id)
	if err != nil {
		return domain.Listing{}, err
	}
	c.store(ctx, l)
	return l, nil
}

// BulkGetListings serves cached listings and fetches the rest from the
// backing store in one call, preserving the input order.
func (c *CachedRepository) BulkGetListings(ctx context.Context, ids []string) ([]domain.Listing, error) {
	cached := make(map[string]domain.Listing, len(ids))
	var missing []string
	for _, id := range ids {
		if l, ok := c.fromCache(ctx, id); ok {
			cached[id] = l
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		loaded, err := c.inner.BulkGetListings(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, l := range loaded {
			cached[l.ID] = l
			c.store(ctx, l)
		}
	}

	out := make([]domain.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := cached[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// FindCandidates passes through to the backing store.
func (c *CachedRepository) FindCandidates(ctx context.Context, q CandidateQuery) ([]domain.Listing, error) {
	return c.inner.FindCandidates(ctx, q)
}

// Invalidate drops a listing from the cache, typically after a write.
func (c *CachedRepository) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil && c.logger != nil {
		c.logger.Warn("cache invalidation failed", "listingId", id, "error", err)
	}
}

func (c *CachedRepository) fromCache(ctx context.Context, id string) (domain.Listing, bool) {
	raw, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil && c.logger != nil {
			c.logger.Warn("cache read failed", "listingId", id, "error", err)
		}
		return domain.Listing{}, false
	}

	var l domain.Listing
	if err := json.Unmarshal(raw, &l); err != nil {
		if c.logger != nil {
			c.logger.Warn("cache entry corrupt", "listingId", id, "error", err)
		}
		return domain.Listing{}, false
	}
	return l, true
}

func (c *CachedRepository) store(ctx context.Context, l domain.Listing) {
	raw, err := json.Marshal(l)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(l.ID), raw, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Warn("cache write failed", "listingId", l.ID, "error", err)
	}
}

func cacheKey(id string) string {
	return fmt.Sprintf("listing:%s", id)
}
