package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/cognita-labs/cognita/src/shared/data"
	"github.com/cognita-labs/cognita/src/shared/types"
	"github.com/cognita-labs/cognita/src/statsbot/components/source"
	"github.com/cognita-labs/cognita/src/statsbot/components/store"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeSource serves canned guilds and histories and records the resume
// point each channel was asked for.
type fakeSource struct {
	guilds    []*source.Guild
	histories map[int64][]*source.Message
	denied    map[int64]bool

	afterSeen map[int64]time.Time
	onMessage func(*source.Message)
}

func (f *fakeSource) Guilds(ctx context.Context) ([]*source.Guild, error) {
	return f.guilds, nil
}

func (f *fakeSource) CanReadHistory(channelID int64) bool {
	return !f.denied[channelID]
}

func (f *fakeSource) History(ctx context.Context, channelID int64, after time.Time, fn func(*source.Message) error) error {
	if f.afterSeen == nil {
		f.afterSeen = map[int64]time.Time{}
	}
	f.afterSeen[channelID] = after
	for _, m := range f.histories[channelID] {
		if !m.Created.After(after) {
			continue
		}
		if f.onMessage != nil {
			f.onMessage(m)
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, data.Migrate(db))
	return db
}

func msg(id, channelID int64, created time.Time) *source.Message {
	return &source.Message{
		ID:         id,
		ChannelID:  channelID,
		GuildID:    900,
		Created:    created,
		Content:    "m",
		AuthorID:   7,
		AuthorName: "alice",
	}
}

func testGuild() *source.Guild {
	return &source.Guild{
		ID:   900,
		Name: "Test Guild",
		Categories: []source.Category{{ID: 40, Name: "chat"}},
		Channels: []source.Channel{
			{ID: 50, Name: "general", CategoryID: 40},
			{ID: 51, Name: "random"},
		},
		Threads: []source.Thread{{ID: 60, ParentID: 50, Name: "a thread", OwnerID: 7}},
		Roles:   []source.Role{{ID: 31, Name: "mods"}},
		Members: []source.Member{{UserID: 7, Username: "alice", RoleIDs: []int64{31}}},
		Emotes:  []source.Emote{{ID: 555, Name: "fire"}},
	}
}

func TestRunPersistsStructureAndHistory(t *testing.T) {
	db := testDB(t)
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{
		guilds: []*source.Guild{testGuild()},
		histories: map[int64][]*source.Message{
			50: {msg(100, 50, day), msg(101, 50, day.Add(time.Minute))},
			51: {msg(102, 51, day)},
			60: {msg(103, 60, day)},
		},
	}
	c := New(Config{Source: src, Store: store.New(db), ThreadDelay: time.Microsecond})

	p, err := c.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, p.Done)
	assert.Equal(t, 1, p.GuildsDone)
	assert.Equal(t, 2, p.Channels)
	assert.Equal(t, 1, p.Threads)
	assert.Equal(t, int64(4), p.Messages)
	assert.Zero(t, p.Errors)

	var guild types.Guild
	require.NoError(t, db.First(&guild, "id = ?", int64(900)).Error)
	assert.Equal(t, "Test Guild", guild.Name)

	var channels, threads, roles, memberships, messages int64
	db.Model(&types.Channel{}).Count(&channels)
	db.Model(&types.Thread{}).Count(&threads)
	db.Model(&types.Role{}).Count(&roles)
	db.Model(&types.RoleMembership{}).Count(&memberships)
	db.Model(&types.Message{}).Count(&messages)
	assert.Equal(t, int64(2), channels)
	assert.Equal(t, int64(1), threads)
	assert.Equal(t, int64(1), roles)
	assert.Equal(t, int64(1), memberships)
	assert.Equal(t, int64(4), messages)
}

func TestRerunStoresNothingNew(t *testing.T) {
	db := testDB(t)
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// The newest message carries a custom-emoji reaction from a user who
	// never posted, exercising the lazy reactor insert during the crawl.
	reacted := msg(101, 50, day.Add(time.Minute))
	reacted.Reactions = []source.Reaction{
		{UserID: 8, Emoji: source.CustomEmoji(555, "fire", false)},
	}
	src := &fakeSource{
		guilds: []*source.Guild{testGuild()},
		histories: map[int64][]*source.Message{
			50: {msg(100, 50, day), reacted},
		},
	}
	c := New(Config{Source: src, Store: store.New(db), ThreadDelay: time.Microsecond})

	p, err := c.Run(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, int64(2), p.Messages)

	counts := tableCounts(t, db)
	assert.Equal(t, int64(2), counts["messages"])
	assert.Equal(t, int64(1), counts["reactions"])
	// Structural member alice plus the lazily created reactor.
	assert.Equal(t, int64(2), counts["users"])

	p, err = c.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, p.Messages)
	assert.Zero(t, p.Errors)

	// The second pass resumed each non-empty channel from its newest stored
	// message, not from the epoch.
	assert.True(t, src.afterSeen[50].Equal(day.Add(time.Minute)))

	// No table of any kind grew on the rerun.
	assert.Equal(t, counts, tableCounts(t, db))
}

// tableCounts snapshots every row count the crawl path can touch.
func tableCounts(t *testing.T, db *gorm.DB) map[string]int64 {
	t.Helper()
	counts := map[string]int64{}
	for name, model := range map[string]interface{}{
		"users":             &types.User{},
		"guilds":            &types.Guild{},
		"categories":        &types.Category{},
		"channels":          &types.Channel{},
		"threads":           &types.Thread{},
		"roles":             &types.Role{},
		"role_memberships":  &types.RoleMembership{},
		"guild_memberships": &types.GuildMembership{},
		"emotes":            &types.Emote{},
		"messages":          &types.Message{},
		"reactions":         &types.Reaction{},
	} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		counts[name] = n
	}
	return counts
}

func TestDeniedChannelIsCountedNotFatal(t *testing.T) {
	db := testDB(t)
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{
		guilds: []*source.Guild{testGuild()},
		denied: map[int64]bool{50: true},
		histories: map[int64][]*source.Message{
			50: {msg(100, 50, day)},
			51: {msg(102, 51, day)},
		},
	}
	c := New(Config{Source: src, Store: store.New(db), ThreadDelay: time.Microsecond})

	p, err := c.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, p.Done)
	assert.Equal(t, int64(1), p.Errors)
	assert.Equal(t, int64(1), p.Messages)

	var count int64
	db.Model(&types.Message{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDaysLimitsResumeFloor(t *testing.T) {
	db := testDB(t)
	old := time.Now().UTC().AddDate(0, 0, -30)
	recent := time.Now().UTC().Add(-time.Hour)
	src := &fakeSource{
		guilds: []*source.Guild{testGuild()},
		histories: map[int64][]*source.Message{
			50: {msg(100, 50, old), msg(101, 50, recent)},
		},
	}
	c := New(Config{Source: src, Store: store.New(db), ThreadDelay: time.Microsecond})

	p, err := c.Run(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Messages)
	assert.True(t, src.afterSeen[50].After(old))
}

func TestConcurrentRunRejected(t *testing.T) {
	db := testDB(t)
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{
		guilds: []*source.Guild{testGuild()},
		histories: map[int64][]*source.Message{
			50: {msg(100, 50, day)},
		},
	}
	c := New(Config{Source: src, Store: store.New(db), ThreadDelay: time.Microsecond})

	src.onMessage = func(*source.Message) {
		_, err := c.Run(context.Background(), 0)
		assert.ErrorIs(t, err, ErrAlreadyRunning)
		assert.True(t, c.Running())
	}

	_, err := c.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, c.Running())
}

func TestCancellationStopsPass(t *testing.T) {
	db := testDB(t)
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{
		guilds: []*source.Guild{testGuild()},
		histories: map[int64][]*source.Message{
			50: {msg(100, 50, day), msg(101, 50, day.Add(time.Minute))},
		},
	}
	c := New(Config{Source: src, Store: store.New(db), ThreadDelay: time.Microsecond})

	ctx, cancel := context.WithCancel(context.Background())
	src.onMessage = func(*source.Message) { cancel() }

	_, err := c.Run(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
