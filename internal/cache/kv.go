// Package cache provides the string key-value store used as the gallery
// fallback cache and the schema-capability flag store.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Keys used by the gallery reconciler.
const (
	// GalleryFieldExistsKey records whether the remote schema currently
	// carries the gallery column ("true"/"false").
	GalleryFieldExistsKey = "galleryImagesFieldExists"
)

// GalleryKey returns the cache key holding the JSON URL list for a product.
func GalleryKey(productID uuid.UUID) string {
	return fmt.Sprintf("product_%s_gallery", productID)
}

// KV is a string-keyed, string-valued persistent store. Get reports
// presence explicitly so an empty value is distinguishable from a miss.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type redisKV struct {
	client *redis.Client
}

// NewRedisKV wraps a redis client as a KV store. Entries have no TTL: the
// gallery cache is a durability floor, not an expiring cache.
func NewRedisKV(client *redis.Client) KV {
	return &redisKV{client: client}
}

func (r *redisKV) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read cache key %q: %w", key, err)
	}
	return value, true, nil
}

func (r *redisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %q: %w", key, err)
	}
	return nil
}
