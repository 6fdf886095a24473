package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"stock-oracle/internal/domain"
)

const (
	defaultBarTTL   = 15 * time.Minute
	defaultBarSpace = "bars"
)

// BarSource is anything that can fetch daily bars for a ticker and period.
type BarSource interface {
	FetchBars(ctx context.Context, ticker, period string) ([]domain.PriceBar, error)
}

// CachingBarProvider serves bars from Redis when present and fills the cache
// from the wrapped source otherwise. A nil client passes straight through.
type CachingBarProvider struct {
	inner     BarSource
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

func NewCachingBarProvider(rdb *redis.Client, ttl time.Duration, inner BarSource) *CachingBarProvider {
	if ttl <= 0 {
		ttl = defaultBarTTL
	}
	return &CachingBarProvider{inner: inner, rdb: rdb, ttl: ttl, namespace: defaultBarSpace}
}

func (c *CachingBarProvider) FetchBars(ctx context.Context, ticker, period string) ([]domain.PriceBar, error) {
	if c.rdb == nil {
		return c.inner.FetchBars(ctx, ticker, period)
	}

	key := c.key(ticker, period)
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var bars []domain.PriceBar
		if err := json.Unmarshal(b, &bars); err == nil {
			log.Debug().Str("key", key).Int("bars", len(bars)).Msg("bar cache hit")
			return bars, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	bars, err := c.inner.FetchBars(ctx, ticker, period)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(bars); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("bar cache write failed")
		}
	}
	return bars, nil
}

func (c *CachingBarProvider) key(ticker, period string) string {
	return fmt.Sprintf("%s:%s:%s", c.namespace, safeKey(strings.ToUpper(ticker)), safeKey(strings.ToLower(period)))
}

func safeKey(s string) string {
	return strings.NewReplacer(" ", "_", ":", "_").Replace(strings.TrimSpace(s))
}
