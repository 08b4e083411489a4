package redisx

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// New returns a Redis client for the given address with a conservative
// per-command timeout.
func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		ReadTimeout: 2 * time.Second,
	})
}
