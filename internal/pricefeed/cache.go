package pricefeed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CachedFeed decorates a Feed with a shared redis cache so the monitor
// and user-facing price queries hit the upstream API at most once per
// TTL window. Cache failures fall through to the inner feed.
type CachedFeed struct {
	inner  Feed
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedFeed wraps a feed with a redis-backed cache.
func NewCachedFeed(inner Feed, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedFeed {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedFeed{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "price_cache").Logger(),
	}
}

func cacheKey(symbol string) string {
	return "price:" + strings.ToUpper(strings.TrimSpace(symbol))
}

// GetPrice serves from the cache when possible, refreshing it after a
// successful upstream fetch.
func (c *CachedFeed) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	key := cacheKey(symbol)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		price, parseErr := decimal.NewFromString(cached)
		if parseErr == nil {
			return price, nil
		}
		c.logger.Warn().Str("key", key).Str("value", cached).Msg("discarding unparseable cache entry")
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Str("key", key).Msg("price cache read failed")
	}

	price, err := c.inner.GetPrice(ctx, symbol)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if setErr := c.client.Set(ctx, key, price.String(), c.ttl).Err(); setErr != nil {
		c.logger.Warn().Err(setErr).Str("key", key).Msg("price cache write failed")
	}
	return price, nil
}

// Symbols defers to the wrapped feed's tracked set.
func (c *CachedFeed) Symbols() []string {
	return c.inner.Symbols()
}

var _ Feed = (*CachedFeed)(nil)
