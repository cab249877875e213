package crawler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cognita-labs/cognita/src/shared/types"
	"github.com/cognita-labs/cognita/src/statsbot/components/source"
	"github.com/cognita-labs/cognita/src/statsbot/components/store"
	"github.com/google/uuid"
)

// ErrAlreadyRunning is returned when a pass is triggered while one is active.
// Two concurrent passes would race each other's per-channel resume cursors.
var ErrAlreadyRunning = errors.New("backfill already running")

// DefaultEpoch predates the community's founding; channels with no stored
// messages resume from here.
var DefaultEpoch = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

type Config struct {
	Source source.Source
	Store  *store.Store

	// Epoch is the resume floor for never-crawled channels. Zero means
	// DefaultEpoch.
	Epoch time.Time
	// ProgressEvery is the channel cadence between progress callbacks.
	ProgressEvery int
	// ThreadDelay is a courtesy pause between messages while iterating
	// threads, which share a write-adjacent history endpoint.
	ThreadDelay time.Duration

	OnProgress ProgressFunc
}

// Crawler walks every accessible channel and thread of every guild,
// streaming history oldest-first from each channel's resume point. A restart
// is safe: the cursor re-derives from stored data, not from a checkpoint.
type Crawler struct {
	cfg Config

	mu      sync.Mutex
	running bool
}

func New(cfg Config) *Crawler {
	if cfg.Epoch.IsZero() {
		cfg.Epoch = DefaultEpoch
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 5
	}
	if cfg.ThreadDelay <= 0 {
		cfg.ThreadDelay = 30 * time.Millisecond
	}
	return &Crawler{cfg: cfg}
}

// Running reports whether a pass is in flight.
func (c *Crawler) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Run performs one pass and returns the final counters. days, when positive,
// limits the pass to the trailing N days; otherwise the pass covers full
// history from each channel's resume point. Errors local to one message,
// channel or thread are counted and absorbed; only context cancellation,
// total enumeration failure or a concurrent pass surface here.
func (c *Crawler) Run(ctx context.Context, days int) (Progress, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return Progress{}, ErrAlreadyRunning
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	p := Progress{RunID: uuid.NewString(), Started: time.Now().UTC()}
	log.Printf("backfill %s: starting", p.RunID)

	guilds, err := c.cfg.Source.Guilds(ctx)
	if err != nil {
		return c.snapshot(p), err
	}
	p.GuildsTotal = len(guilds)

	for _, g := range guilds {
		if err := ctx.Err(); err != nil {
			return c.snapshot(p), err
		}
		p.CurrentGuild = g.Name
		c.report(&p)

		c.syncStructure(ctx, g, &p)

		for i, ch := range g.Channels {
			if err := ctx.Err(); err != nil {
				return c.snapshot(p), err
			}
			c.crawlChannel(ctx, g, ch.ID, days, false, &p)
			p.Channels++
			if (i+1)%c.cfg.ProgressEvery == 0 {
				c.report(&p)
			}
		}

		// Threads are a second pass with their own cursors; their messages
		// live under channel_id = thread id.
		for _, th := range g.Threads {
			if err := ctx.Err(); err != nil {
				return c.snapshot(p), err
			}
			c.crawlChannel(ctx, g, th.ID, days, true, &p)
			p.Threads++
		}

		p.GuildsDone++
		c.report(&p)
	}

	p.Done = true
	c.report(&p)
	log.Printf("backfill %s: complete, %d messages, %d errors", p.RunID, p.Messages, p.Errors)
	return c.snapshot(p), nil
}

// syncStructure reconciles the guild's static entities before history runs,
// so messages land against known channels, roles and members. A failed
// entity is logged and counted; its siblings are still attempted.
func (c *Crawler) syncStructure(ctx context.Context, g *source.Guild, p *Progress) {
	st := c.cfg.Store

	if err := st.UpsertGuild(ctx, &types.Guild{ID: g.ID, Name: g.Name, Created: g.Created}); err != nil {
		c.fail(p, "guild %d: %v", g.ID, err)
	}
	for _, cat := range g.Categories {
		row := types.Category{ID: cat.ID, GuildID: g.ID, Name: cat.Name, Position: cat.Position}
		if err := st.UpsertCategory(ctx, &row); err != nil {
			c.fail(p, "category %d: %v", cat.ID, err)
		}
	}
	for _, ch := range g.Channels {
		row := types.Channel{
			ID:       ch.ID,
			GuildID:  g.ID,
			Name:     ch.Name,
			Topic:    ch.Topic,
			Position: ch.Position,
			NSFW:     ch.NSFW,
			Slowmode: ch.Slowmode,
		}
		if ch.CategoryID != 0 {
			cat := ch.CategoryID
			row.CategoryID = &cat
		}
		if err := st.UpsertChannel(ctx, &row); err != nil {
			c.fail(p, "channel %d: %v", ch.ID, err)
		}
	}
	for _, th := range g.Threads {
		row := types.Thread{
			ID:                 th.ID,
			GuildID:            g.ID,
			ParentID:           th.ParentID,
			Name:               th.Name,
			OwnerID:            th.OwnerID,
			AutoArchiveMinutes: th.AutoArchiveMinutes,
			Archived:           th.Archived,
			Locked:             th.Locked,
			Private:            th.Private,
		}
		if th.ArchiverID != 0 {
			id := th.ArchiverID
			row.ArchiverID = &id
		}
		if err := st.UpsertThread(ctx, &row); err != nil {
			c.fail(p, "thread %d: %v", th.ID, err)
		}
	}
	for _, r := range g.Roles {
		row := types.Role{
			ID:       r.ID,
			GuildID:  g.ID,
			Name:     r.Name,
			Color:    r.Color,
			Hoisted:  r.Hoisted,
			Managed:  r.Managed,
			Position: r.Position,
		}
		if err := st.UpsertRole(ctx, &row); err != nil {
			c.fail(p, "role %d: %v", r.ID, err)
		}
	}
	for _, e := range g.Emotes {
		row := types.Emote{ID: e.ID, GuildID: g.ID, Name: e.Name, Animated: e.Animated, URL: e.URL}
		if err := st.UpsertEmote(ctx, &row); err != nil {
			c.fail(p, "emote %d: %v", e.ID, err)
		}
	}
	for i := range g.Members {
		m := &g.Members[i]
		if err := st.UpsertUser(ctx, store.UserFromMember(m)); err != nil {
			c.fail(p, "member user %d: %v", m.UserID, err)
			continue
		}
		gm := types.GuildMembership{GuildID: g.ID, UserID: m.UserID, Nickname: m.Nickname, JoinedAt: m.JoinedAt}
		if err := st.UpsertGuildMember(ctx, &gm); err != nil {
			c.fail(p, "membership %d/%d: %v", g.ID, m.UserID, err)
		}
		for _, roleID := range m.RoleIDs {
			if err := st.AddRoleMember(ctx, g.ID, m.UserID, roleID); err != nil {
				// A role deleted mid-enumeration lands here; skip the row,
				// keep the member's remaining roles.
				c.fail(p, "role member %d/%d: %v", m.UserID, roleID, err)
			}
		}
	}
}

func (c *Crawler) crawlChannel(ctx context.Context, g *source.Guild, channelID int64, days int, thread bool, p *Progress) {
	if !c.cfg.Source.CanReadHistory(channelID) {
		c.fail(p, "channel %d: history access denied", channelID)
		return
	}

	after, ok, err := c.cfg.Store.LastMessageTime(ctx, channelID)
	if err != nil {
		c.fail(p, "channel %d: resume point: %v", channelID, err)
		return
	}
	if !ok || after.Before(c.cfg.Epoch) {
		after = c.cfg.Epoch
	}
	if days > 0 {
		if floor := time.Now().UTC().AddDate(0, 0, -days); floor.After(after) {
			after = floor
		}
	}

	err = c.cfg.Source.History(ctx, channelID, after, func(m *source.Message) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stored, serr := c.cfg.Store.SaveMessage(ctx, m)
		if serr != nil {
			c.fail(p, "message %d in %d: %v", m.ID, channelID, serr)
		} else if stored {
			p.Messages++
		}
		if thread {
			time.Sleep(c.cfg.ThreadDelay)
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		c.fail(p, "channel %d (guild %s): history: %v", channelID, g.Name, err)
	}
}

func (c *Crawler) fail(p *Progress, format string, args ...interface{}) {
	p.Errors++
	log.Printf("backfill: "+format, args...)
}

func (c *Crawler) report(p *Progress) {
	if c.cfg.OnProgress == nil {
		return
	}
	c.cfg.OnProgress(c.snapshot(*p))
}

func (c *Crawler) snapshot(p Progress) Progress {
	p.ElapsedSeconds = time.Since(p.Started).Seconds()
	return p
}
