package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bidhaus/auction-engine/internal/auction/domain"
	"github.com/bidhaus/auction-engine/internal/shared/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	statsKey = "auction:status_stats"
	statsTTL = 30 * time.Second
)

// RedisStatsCache caches the status histogram for dashboard polling. Any
// Redis failure degrades to a store read, never to an error.
type RedisStatsCache struct {
	rdb *redis.Client
}

func NewRedisStatsCache(rdb *redis.Client) *RedisStatsCache {
	return &RedisStatsCache{rdb: rdb}
}

func (c *RedisStatsCache) GetStatusStats(ctx context.Context) (map[domain.Status]int, bool) {
	raw, err := c.rdb.Get(ctx, statsKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn("stats cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var stats map[domain.Status]int
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false
	}
	return stats, true
}

func (c *RedisStatsCache) SetStatusStats(ctx context.Context, stats map[domain.Status]int) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, statsKey, raw, statsTTL).Err(); err != nil {
		log.Warn("stats cache write failed", zap.Error(err))
	}
}
