package crawler

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/cognita-labs/cognita/src/shared/data"
	"github.com/redis/go-redis/v9"
)

// Progress is the cumulative state of one backfill pass.
type Progress struct {
	RunID          string    `json:"run_id"`
	GuildsDone     int       `json:"guilds_done"`
	GuildsTotal    int       `json:"guilds_total"`
	Channels       int       `json:"channels"`
	Threads        int       `json:"threads"`
	Messages       int64     `json:"messages"`
	Errors         int64     `json:"errors"`
	CurrentGuild   string    `json:"current_guild"`
	Started        time.Time `json:"started"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Done           bool      `json:"done"`
}

// ProgressFunc receives snapshots at a bounded cadence, never per message.
type ProgressFunc func(Progress)

// LogProgress is the default reporter: one operator-readable log line.
func LogProgress(p Progress) {
	log.Printf("backfill %s: guilds %d/%d (%s) channels=%d threads=%d messages=%d errors=%d elapsed=%s",
		p.RunID, p.GuildsDone, p.GuildsTotal, p.CurrentGuild,
		p.Channels, p.Threads, p.Messages, p.Errors,
		time.Duration(p.ElapsedSeconds*float64(time.Second)).Round(time.Second))
}

// Publisher mirrors progress snapshots into Redis so the status API (a
// separate process) can show a live backfill.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (pub *Publisher) Publish(p Progress) {
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := data.SetBackfillProgress(ctx, pub.rdb, b); err != nil {
		log.Printf("stats: publish backfill progress: %v", err)
	}
}
