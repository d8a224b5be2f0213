package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockcast/internal/domain"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "stockcast:series:"

// RedisStore holds the same columnar payload as FileStore under a key that
// expires with the TTL. A single SET is atomic, so readers never see partial
// entries.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func (s *RedisStore) Get(ctx context.Context, symbol, period string) (domain.MarketSeries, bool, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+Key(symbol, period)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.MarketSeries{}, false, nil
	}
	if err != nil {
		return domain.MarketSeries{}, false, fmt.Errorf("redis get: %w", err)
	}

	series, writtenAt, err := decodeRecord(payload)
	if err != nil {
		return domain.MarketSeries{}, false, err
	}
	if !isFresh(writtenAt, s.now(), s.ttl) {
		return domain.MarketSeries{}, false, nil
	}
	return series, true, nil
}

func (s *RedisStore) Put(ctx context.Context, series domain.MarketSeries) error {
	payload, err := encodeRecord(series, s.now())
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKeyPrefix+Key(series.Symbol, series.Period), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
