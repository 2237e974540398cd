// Package cache keeps hot catalog reads (single cakes and the grouped
// customization list) in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrCacheMiss = errors.New("cache miss")

// Store is a byte-oriented key/value cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

const (
	cakePrefix           = "cake:"
	customizationsPrefix = "customizations:"
)

func CakeKey(id uint) string { return fmt.Sprintf("%s%d", cakePrefix, id) }

// CustomizationsKey is the key for the active options of one category, or of
// all categories when category is empty.
func CustomizationsKey(category string) string {
	if category == "" {
		category = "all"
	}
	return customizationsPrefix + category
}

// Catalog is the read-through cache used by the catalog handlers. Cache
// failures are logged and fall back to the loader.
type Catalog struct {
	store Store
	log   *zap.Logger
	sfg   singleflight.Group
}

func NewCatalog(store Store, log *zap.Logger) *Catalog {
	if store == nil {
		store = Noop{}
	}
	return &Catalog{store: store, log: log.Named("cache")}
}

// InvalidateCake drops a single cached cake.
func (c *Catalog) InvalidateCake(ctx context.Context, id uint) {
	if err := c.store.Delete(ctx, CakeKey(id)); err != nil {
		c.log.Warn("cake cache invalidation failed", zap.Uint("cake_id", id), zap.Error(err))
	}
}

// InvalidateCustomizations drops every cached customization listing.
func (c *Catalog) InvalidateCustomizations(ctx context.Context) {
	if err := c.store.DeletePrefix(ctx, customizationsPrefix); err != nil {
		c.log.Warn("customization cache invalidation failed", zap.Error(err))
	}
}

// Fetch returns the cached value for key, or runs load once per key across
// concurrent callers and caches its result.
func Fetch[T any](ctx context.Context, c *Catalog, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T

	v, err, _ := c.sfg.Do(key, func() (any, error) {
		var cached T
		data, err := c.store.Get(ctx, key)
		if err == nil {
			if err := decode(data, &cached); err == nil {
				return cached, nil
			}
			c.log.Warn("dropping undecodable cache entry", zap.String("key", key))
		} else if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}

		fresh, err := load(ctx)
		if err != nil {
			return zero, err
		}
		if data, err := encode(fresh); err != nil {
			c.log.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		} else if err := c.store.Set(context.WithoutCancel(ctx), key, data); err != nil {
			c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
		return fresh, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// Noop never stores anything; every read is a miss.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }
func (Noop) Set(context.Context, string, []byte) error { return nil }
func (Noop) Delete(context.Context, ...string) error { return nil }
func (Noop) DeletePrefix(context.Context, string) error { return nil }
