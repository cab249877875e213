package store

import (
	"testing"
	"time"

	"github.com/cognita-labs/cognita/src/shared/data"
	"github.com/cognita-labs/cognita/src/statsbot/components/source"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testStore opens an in-memory database with foreign keys enforced, so the
// author self-healing path exercises the same constraint failure it sees in
// production.
func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, data.Migrate(db))
	return New(db)
}

func testMessage(id, authorID, channelID int64, created time.Time) *source.Message {
	return &source.Message{
		ID:          id,
		ChannelID:   channelID,
		GuildID:     900,
		Created:     created,
		Content:     "hello",
		AuthorID:    authorID,
		AuthorName:  "alice",
		GuildName:   "Test Guild",
		ChannelName: "general",
	}
}
