package webserver

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/cognita-labs/cognita/src/shared/data"
	"github.com/cognita-labs/cognita/src/statsbot/components/store"
)

type Stats struct {
	db    *gorm.DB
	rdb   *redis.Client
	store *store.Store
}

func NewStats(db *gorm.DB, rdb *redis.Client) Stats {
	return Stats{db: db, rdb: rdb, store: store.New(db)}
}

// Status reports table totals plus the last backfill progress snapshot
// published by the bot, when one is still fresh.
func (h Stats) Status(c *gin.Context) {
	totals, err := h.store.Totals(c.Request.Context())
	if err != nil {
		log.Printf("Status totals query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "query failed"})
		return
	}

	resp := gin.H{"totals": totals}
	if raw, err := data.GetBackfillProgress(c.Request.Context(), h.rdb); err != nil {
		log.Printf("Failed to read backfill progress: %v", err)
	} else if raw != nil {
		var progress json.RawMessage = raw
		resp["backfill"] = progress
	}
	c.JSON(http.StatusOK, resp)
}

type channelActivity struct {
	ChannelID string `json:"channelId"`
	Name      string `json:"name"`
	Count     int64  `json:"count"`
}

// Channels lists per-channel message counts over the trailing window.
// ?hours=N selects the window, default 24, capped at 30 days.
func (h Stats) Channels(c *gin.Context) {
	hours := 24
	if v := c.Query("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 720 {
			c.JSON(http.StatusBadRequest, gin.H{"err": "hours must be 1-720"})
			return
		}
		hours = n
	}

	ctx := c.Request.Context()
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	rows, err := h.store.ActivitySince(ctx, since)
	if err != nil {
		log.Printf("Channel activity query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "query failed"})
		return
	}

	names := map[int64]string{}
	if channels, err := h.store.AllChannels(ctx); err == nil {
		for _, ch := range channels {
			names[ch.ID] = ch.Name
		}
	}
	if threads, err := h.store.AllThreads(ctx); err == nil {
		for _, th := range threads {
			names[th.ID] = th.Name
		}
	}

	out := make([]channelActivity, 0, len(rows))
	for _, r := range rows {
		out = append(out, channelActivity{
			ChannelID: strconv.FormatInt(r.ChannelID, 10),
			Name:      names[r.ChannelID],
			Count:     r.Count,
		})
	}
	c.JSON(http.StatusOK, gin.H{"since": since, "channels": out})
}

// Members reports join and leave counts over the trailing window.
func (h Stats) Members(c *gin.Context) {
	hours := 24
	if v := c.Query("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 720 {
			c.JSON(http.StatusBadRequest, gin.H{"err": "hours must be 1-720"})
			return
		}
		hours = n
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	joins, leaves, err := h.store.MemberFlowSince(c.Request.Context(), since)
	if err != nil {
		log.Printf("Member flow query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"since": since, "joins": joins, "leaves": leaves})
}
