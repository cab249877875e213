package store

import (
	"context"
	"fmt"

	"github.com/cognita-labs/cognita/src/shared/types"
	"github.com/cognita-labs/cognita/src/statsbot/components/source"
	"gorm.io/gorm/clause"
)

var reactionKey = []clause.Column{
	{Name: "message_id"},
	{Name: "user_id"},
	{Name: "emoji_id"},
	{Name: "unicode_emoji"},
}

// UpsertReaction records a reaction, reviving a previously removed one. The
// unused discriminant column stays at its zero value, so a unicode glyph and
// a custom emote never share a key.
func (s *Store) UpsertReaction(ctx context.Context, messageID, userID int64, e source.Emoji) error {
	// The reactor may never have posted; create the user lazily from the id.
	stub := &types.User{ID: userID, Created: source.SnowflakeTime(userID)}
	if err := s.EnsureUser(ctx, stub); err != nil {
		return fmt.Errorf("ensure reactor %d: %w", userID, err)
	}

	row := types.Reaction{MessageID: messageID, UserID: userID}
	switch e.Kind {
	case source.EmojiCustom:
		row.EmojiID = e.ID
		row.EmojiName = e.Name
		row.Animated = e.Animated
		row.EmojiURL = e.URL()
	default:
		row.UnicodeEmoji = e.Unicode
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   reactionKey,
			DoUpdates: clause.Assignments(map[string]interface{}{"removed": false}),
		}).
		Create(&row).Error
}

// RemoveReaction flips the removed flag rather than deleting, keeping the
// reaction trail auditable.
func (s *Store) RemoveReaction(ctx context.Context, messageID, userID int64, e source.Emoji) error {
	q := s.db.WithContext(ctx).Model(&types.Reaction{}).
		Where("message_id = ? AND user_id = ?", messageID, userID)
	if e.Kind == source.EmojiCustom {
		q = q.Where("emoji_id = ?", e.ID)
	} else {
		q = q.Where("unicode_emoji = ?", e.Unicode)
	}
	return q.Update("removed", true).Error
}
