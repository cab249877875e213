package store

import (
	"context"
	"fmt"
	"log"

	"github.com/cognita-labs/cognita/src/shared/types"
	"github.com/cognita-labs/cognita/src/statsbot/components/source"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveMessage persists one message and its children atomically. Returns true
// when the message was newly stored, false when it already existed (a
// duplicate delivery is a no-op, not an error).
//
// Authors are not guaranteed to have been observed yet: a user who only ever
// reacted and later posts, or a channel backfilled out of order, produces a
// message whose author row is missing. The foreign-key failure triggers a
// lazy author insert and one retry in a fresh transaction.
func (s *Store) SaveMessage(ctx context.Context, m *source.Message) (bool, error) {
	row := messageRow(m)

	stored, err := s.saveMessageTx(ctx, row, m)
	if err != nil && isForeignKeyErr(err) {
		author := &types.User{
			ID:       m.AuthorID,
			Username: m.AuthorName,
			Bot:      m.AuthorBot,
			Created:  source.SnowflakeTime(m.AuthorID),
		}
		if uerr := s.EnsureUser(ctx, author); uerr != nil {
			return false, fmt.Errorf("create author %d: %w", m.AuthorID, uerr)
		}
		stored, err = s.saveMessageTx(ctx, row, m)
	}
	if err != nil {
		return false, fmt.Errorf("save message %d: %w", m.ID, err)
	}

	// Reactions attached to the message are independent upserts; a bad one
	// must not take its siblings down.
	for _, r := range m.Reactions {
		if rerr := s.UpsertReaction(ctx, m.ID, r.UserID, r.Emoji); rerr != nil {
			log.Printf("stats: reaction on message %d by %d: %v", m.ID, r.UserID, rerr)
		}
	}
	return stored, nil
}

func (s *Store) saveMessageTx(ctx context.Context, row *types.Message, m *source.Message) (bool, error) {
	stored := false
	err := s.hot.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Same message id re-delivered.
			return nil
		}
		stored = true
		return saveChildren(tx, m)
	})
	return stored, err
}

func saveChildren(tx *gorm.DB, m *source.Message) error {
	if len(m.Attachments) > 0 {
		rows := make([]types.Attachment, 0, len(m.Attachments))
		for _, a := range m.Attachments {
			rows = append(rows, types.Attachment{
				ID:        a.ID,
				MessageID: m.ID,
				Filename:  a.Filename,
				URL:       a.URL,
				Size:      a.Size,
				Width:     a.Width,
				Height:    a.Height,
				Spoiler:   a.Spoiler,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("attachments: %w", err)
		}
	}

	if len(m.Embeds) > 0 {
		embeds := make([]types.Embed, 0, len(m.Embeds))
		for _, e := range m.Embeds {
			embeds = append(embeds, types.Embed{
				MessageID:    m.ID,
				Title:        e.Title,
				Description:  e.Description,
				URL:          e.URL,
				Color:        e.Color,
				Footer:       e.Footer,
				ImageURL:     e.ImageURL,
				ThumbnailURL: e.ThumbnailURL,
				VideoURL:     e.VideoURL,
				Provider:     e.Provider,
				AuthorName:   e.AuthorName,
			})
		}
		if err := tx.Create(&embeds).Error; err != nil {
			return fmt.Errorf("embeds: %w", err)
		}
		var fields []types.EmbedField
		for i, e := range m.Embeds {
			for _, f := range e.Fields {
				fields = append(fields, types.EmbedField{
					EmbedID: embeds[i].ID,
					Name:    f.Name,
					Value:   f.Value,
					Inline:  f.Inline,
				})
			}
		}
		if len(fields) > 0 {
			if err := tx.Create(&fields).Error; err != nil {
				return fmt.Errorf("embed fields: %w", err)
			}
		}
	}

	var mentions []types.Mention
	for _, id := range m.MentionUser {
		mentions = append(mentions, types.Mention{MessageID: m.ID, TargetID: id, Kind: "user"})
	}
	for _, id := range m.MentionRole {
		mentions = append(mentions, types.Mention{MessageID: m.ID, TargetID: id, Kind: "role"})
	}
	if len(mentions) > 0 {
		if err := tx.Create(&mentions).Error; err != nil {
			return fmt.Errorf("mentions: %w", err)
		}
	}
	return nil
}

func messageRow(m *source.Message) *types.Message {
	row := &types.Message{
		ID:          m.ID,
		Created:     m.Created.UTC(),
		Content:     m.Content,
		AuthorID:    m.AuthorID,
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		AuthorName:  m.AuthorName,
		AuthorNick:  m.AuthorNick,
		GuildName:   m.GuildName,
		ChannelName: m.ChannelName,
		JumpLink:    m.JumpLink,
		Bot:         m.AuthorBot,
	}
	if m.ReferenceID != 0 {
		ref := m.ReferenceID
		row.ReferenceID = &ref
	}
	return row
}

// GetMessage returns the live message row, if stored.
func (s *Store) GetMessage(ctx context.Context, id int64) (*types.Message, error) {
	var row types.Message
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// RecordEdit appends to the edit trail and updates the live row in place.
func (s *Store) RecordEdit(ctx context.Context, edit *types.MessageEdit) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(edit).Error; err != nil {
			return err
		}
		return tx.Model(&types.Message{}).
			Where("id = ?", edit.MessageID).
			Update("content", edit.NewContent).Error
	})
}

// SoftDeleteMessage flips the deleted flag; rows are never removed.
func (s *Store) SoftDeleteMessage(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Model(&types.Message{}).
		Where("id = ?", id).
		Update("deleted", true).Error
}
