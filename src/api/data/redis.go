package data

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitPrefix = "ratelimit:"
	streamEvents    = "elections.events"
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// PublishElectionEvent appends a lifecycle event (created, updated,
// deleted) to the elections stream for downstream consumers.
func PublishElectionEvent(ctx context.Context, rdb *redis.Client, payload map[string]interface{}) error {
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamEvents,
		Values: payload,
	}).Result()
	return err
}

// CountInWindow increments the fixed-window counter for key and returns
// the new count. The window TTL is set when the counter is first created;
// later increments leave it alone so the window actually closes.
func CountInWindow(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int64, error) {
	n, err := rdb.Incr(ctx, rateLimitPrefix+key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := rdb.Expire(ctx, rateLimitPrefix+key, window).Err(); err != nil {
			return 0, err
		}
	}
	return n, nil
}
