// README: Redis-backed cache in front of a distance provider.
package geo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"ridescore/internal/types"
)

const distanceKeyPrefix = "ridescore:distance:"

// CachedProvider memoises successful provider answers. Only successes are
// stored, so a provider outage is never cached. Redis errors degrade to a
// direct provider call.
type CachedProvider struct {
	next   Provider
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedProvider(next Provider, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{next: next, redis: client, ttl: ttl, logger: logger}
}

func (c *CachedProvider) DrivingDistance(ctx context.Context, from, to types.Point) (Leg, error) {
	key := distanceKey(from, to)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		if leg, perr := decodeLeg(val); perr == nil {
			return leg, nil
		}
		c.logger.Warn("distance cache entry corrupt", "key", key)
	case err != redis.Nil:
		c.logger.Warn("distance cache read failed", "key", key, "err", err)
	}

	leg, err := c.next.DrivingDistance(ctx, from, to)
	if err != nil {
		return Leg{}, err
	}
	if err := c.redis.Set(ctx, key, encodeLeg(leg), c.ttl).Err(); err != nil {
		c.logger.Warn("distance cache write failed", "key", key, "err", err)
	}
	return leg, nil
}

// distanceKey rounds to 5 decimal places (about 1 m) so equal inputs share an entry.
func distanceKey(from, to types.Point) string {
	return fmt.Sprintf("%s%.5f,%.5f:%.5f,%.5f", distanceKeyPrefix, from.Lat, from.Lng, to.Lat, to.Lng)
}

func encodeLeg(leg Leg) string {
	return strconv.FormatFloat(leg.Miles, 'g', -1, 64) + "|" + strconv.FormatInt(int64(leg.Duration), 10)
}

func decodeLeg(s string) (Leg, error) {
	miles, dur, ok := strings.Cut(s, "|")
	if !ok {
		return Leg{}, fmt.Errorf("malformed cache value %q", s)
	}
	m, err := strconv.ParseFloat(miles, 64)
	if err != nil {
		return Leg{}, err
	}
	d, err := strconv.ParseInt(dur, 10, 64)
	if err != nil {
		return Leg{}, err
	}
	return Leg{Miles: m, Duration: time.Duration(d)}, nil
}
