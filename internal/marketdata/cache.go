package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"momentum-screener/config"
)

const barKeyPrefix = "bars:%s:%d" // symbol, limit

// BarCache fronts a Provider with a Redis TTL cache. When Redis is
// unavailable it degrades to pass-through; cache faults never fail a
// fetch, they only cost a provider round-trip.
type BarCache struct {
	provider Provider
	client   *redis.Client
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewBarCache wraps a provider with a Redis cache
func NewBarCache(provider Provider, cfg config.RedisConfig, logger zerolog.Logger) (*BarCache, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	bc := &BarCache{
		provider: provider,
		client:   client,
		ttl:      time.Duration(cfg.BarTTL) * time.Second,
		logger:   logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("initial redis connection failed, cache degraded to pass-through")
	}

	return bc, nil
}

// GetDailyBars returns cached bars when fresh, otherwise fetches from
// the underlying provider and stores the result.
func (bc *BarCache) GetDailyBars(ctx context.Context, symbol string, limit int) ([]Bar, error) {
	key := fmt.Sprintf(barKeyPrefix, symbol, limit)

	if data, err := bc.client.Get(ctx, key).Bytes(); err == nil {
		var bars []Bar
		if err := json.Unmarshal(data, &bars); err == nil {
			return bars, nil
		}
		// Corrupt entry, drop it and refetch
		bc.client.Del(ctx, key)
	}

	bars, err := bc.provider.GetDailyBars(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(bars); err == nil {
		if err := bc.client.Set(ctx, key, data, bc.ttl).Err(); err != nil {
			bc.logger.Debug().Err(err).Str("symbol", symbol).Msg("bar cache write failed")
		}
	}

	return bars, nil
}

// ListSymbols passes through to the underlying provider
func (bc *BarCache) ListSymbols(ctx context.Context) ([]string, error) {
	return bc.provider.ListSymbols(ctx)
}

// Close releases the Redis connection
func (bc *BarCache) Close() error {
	return bc.client.Close()
}
