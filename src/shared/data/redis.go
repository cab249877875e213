package data

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const backfillProgressKey = "cognita:backfill:progress"

// Progress snapshots outlive a crashed crawl long enough for an operator to
// see the last reported state.
const backfillProgressTTL = 6 * time.Hour

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// SetBackfillProgress stores the latest progress snapshot as JSON.
func SetBackfillProgress(ctx context.Context, rdb *redis.Client, payload []byte) error {
	return rdb.Set(ctx, backfillProgressKey, payload, backfillProgressTTL).Err()
}

// GetBackfillProgress returns the latest progress snapshot, or nil if none.
func GetBackfillProgress(ctx context.Context, rdb *redis.Client) ([]byte, error) {
	b, err := rdb.Get(ctx, backfillProgressKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return b, err
}
