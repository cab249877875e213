package crawler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognita-labs/cognita/src/shared/data"
)

func TestPublisherRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	pub := NewPublisher(rdb)
	pub.Publish(Progress{
		RunID:    "run-1",
		Messages: 42,
		Started:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	raw, err := data.GetBackfillProgress(context.Background(), rdb)
	require.NoError(t, err)
	require.NotNil(t, raw)

	var p Progress
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, "run-1", p.RunID)
	assert.Equal(t, int64(42), p.Messages)
}

func TestGetBackfillProgressMissing(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	raw, err := data.GetBackfillProgress(context.Background(), rdb)
	require.NoError(t, err)
	assert.Nil(t, raw)
}
