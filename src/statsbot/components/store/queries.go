package store

import (
	"context"
	"time"

	"github.com/cognita-labs/cognita/src/shared/types"
	"gorm.io/gorm"
)

// LastMessageTime returns the resume cursor for a channel or thread: the
// newest stored message timestamp, or ok=false when nothing is stored yet.
func (s *Store) LastMessageTime(ctx context.Context, channelID int64) (time.Time, bool, error) {
	var ts *time.Time
	err := s.db.WithContext(ctx).Model(&types.Message{}).
		Where("channel_id = ?", channelID).
		Select("MAX(created)").
		Scan(&ts).Error
	if err != nil || ts == nil {
		return time.Time{}, false, err
	}
	return ts.UTC(), true, nil
}

// Totals are the row counts surfaced by the status API.
type Totals struct {
	Messages  int64 `json:"messages"`
	Users     int64 `json:"users"`
	Guilds    int64 `json:"guilds"`
	Channels  int64 `json:"channels"`
	Threads   int64 `json:"threads"`
	Reactions int64 `json:"reactions"`
}

func (s *Store) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	db := s.db.WithContext(ctx)
	for _, c := range []struct {
		model interface{}
		dst   *int64
	}{
		{&types.Message{}, &t.Messages},
		{&types.User{}, &t.Users},
		{&types.Guild{}, &t.Guilds},
		{&types.Channel{}, &t.Channels},
		{&types.Thread{}, &t.Threads},
		{&types.Reaction{}, &t.Reactions},
	} {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return t, err
		}
	}
	return t, nil
}

// ActivityRow is a per-channel (or per-thread) message count over a window.
type ActivityRow struct {
	ChannelID int64
	Count     int64
}

// ActivitySince counts non-deleted messages per channel id since the cutoff.
// Thread messages appear under their thread's id.
func (s *Store) ActivitySince(ctx context.Context, since time.Time) ([]ActivityRow, error) {
	var rows []ActivityRow
	err := s.db.WithContext(ctx).Model(&types.Message{}).
		Select("channel_id, COUNT(*) as count").
		Where("created >= ? AND deleted = ?", since.UTC(), false).
		Group("channel_id").
		Scan(&rows).Error
	return rows, err
}

// MemberFlowSince returns join and leave counts since the cutoff.
func (s *Store) MemberFlowSince(ctx context.Context, since time.Time) (joins, leaves int64, err error) {
	db := s.db.WithContext(ctx).Model(&types.MemberEvent{})
	if err = db.Where("created_at >= ? AND direction = ?", since.UTC(), "join").Count(&joins).Error; err != nil {
		return
	}
	err = s.db.WithContext(ctx).Model(&types.MemberEvent{}).
		Where("created_at >= ? AND direction = ?", since.UTC(), "leave").Count(&leaves).Error
	return
}

func (s *Store) AllCategories(ctx context.Context) ([]types.Category, error) {
	var out []types.Category
	err := s.db.WithContext(ctx).Where("deleted = ?", false).Order("position").Find(&out).Error
	return out, err
}

func (s *Store) AllChannels(ctx context.Context) ([]types.Channel, error) {
	var out []types.Channel
	err := s.db.WithContext(ctx).Where("deleted = ?", false).Order("position").Find(&out).Error
	return out, err
}

func (s *Store) AllThreads(ctx context.Context) ([]types.Thread, error) {
	var out []types.Thread
	err := s.db.WithContext(ctx).Where("deleted = ?", false).Find(&out).Error
	return out, err
}

// RefreshDailyStats rebuilds the rollup rows for the day containing at. The
// counts are computed in Go and swapped in transactionally, standing in for
// a materialized-view refresh the storage engine does not offer.
func (s *Store) RefreshDailyStats(ctx context.Context, at time.Time) error {
	day := at.UTC().Truncate(24 * time.Hour)
	next := day.Add(24 * time.Hour)

	var counts []struct {
		ChannelID   int64
		GuildID     int64
		ChannelName string
		Count       int64
	}
	err := s.db.WithContext(ctx).Model(&types.Message{}).
		Select("channel_id, guild_id, channel_name, COUNT(*) as count").
		Where("created >= ? AND created < ? AND deleted = ?", day, next, false).
		Group("channel_id").Group("guild_id").Group("channel_name").
		Scan(&counts).Error
	if err != nil {
		return err
	}

	categories := map[int64]int64{}
	channels, err := s.AllChannels(ctx)
	if err != nil {
		return err
	}
	for _, c := range channels {
		if c.CategoryID != nil {
			categories[c.ID] = *c.CategoryID
		}
	}

	rows := make([]types.DailyChannelStat, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, types.DailyChannelStat{
			Day:          day,
			ChannelID:    c.ChannelID,
			GuildID:      c.GuildID,
			CategoryID:   categories[c.ChannelID],
			ChannelName:  c.ChannelName,
			MessageCount: c.Count,
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("day = ?", day).Delete(&types.DailyChannelStat{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}
