package store

import (
	"context"
	"testing"
	"time"

	"github.com/cognita-labs/cognita/src/shared/types"
	"github.com/cognita-labs/cognita/src/statsbot/components/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionDiscriminants(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.SaveMessage(ctx, testMessage(200, 7, 50, time.Now().UTC()))
	require.NoError(t, err)

	// A glyph and a custom emote from the same user on the same message are
	// distinct reactions.
	require.NoError(t, s.UpsertReaction(ctx, 200, 9, source.UnicodeEmoji("🔥")))
	require.NoError(t, s.UpsertReaction(ctx, 200, 9, source.CustomEmoji(555, "fire", false)))

	var rows []types.Reaction
	require.NoError(t, s.db.Where("message_id = ?", int64(200)).Find(&rows).Error)
	assert.Len(t, rows, 2)
}

func TestReactionUpsertIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.SaveMessage(ctx, testMessage(201, 7, 50, time.Now().UTC()))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.UpsertReaction(ctx, 201, 9, source.UnicodeEmoji("👍")))
	}

	var count int64
	require.NoError(t, s.db.Model(&types.Reaction{}).Where("message_id = ?", int64(201)).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRemoveReactionFlipsFlagAndReaddRevives(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.SaveMessage(ctx, testMessage(202, 7, 50, time.Now().UTC()))
	require.NoError(t, err)

	emoji := source.CustomEmoji(555, "fire", true)
	require.NoError(t, s.UpsertReaction(ctx, 202, 9, emoji))
	require.NoError(t, s.RemoveReaction(ctx, 202, 9, emoji))

	var row types.Reaction
	require.NoError(t, s.db.Where("message_id = ? AND user_id = ?", int64(202), int64(9)).First(&row).Error)
	assert.True(t, row.Removed)
	assert.Equal(t, "https://cdn.discordapp.com/emojis/555.gif", row.EmojiURL)

	// Re-adding revives the same row instead of inserting a second one.
	require.NoError(t, s.UpsertReaction(ctx, 202, 9, emoji))
	var rows []types.Reaction
	require.NoError(t, s.db.Where("message_id = ?", int64(202)).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Removed)
}
