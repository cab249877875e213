package source

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// EmojiFrom decides the unicode/custom discriminant for a platform emoji.
func EmojiFrom(e *discordgo.Emoji) Emoji {
	if e == nil {
		return Emoji{}
	}
	if e.ID == "" {
		return UnicodeEmoji(e.Name)
	}
	return CustomEmoji(ParseID(e.ID), e.Name, e.Animated)
}

// FromMessage converts a platform message. Reaction user lists are not part
// of the payload; the history adapter fills Reactions separately.
func FromMessage(m *discordgo.Message, guildName, channelName, nick string) *Message {
	msg := &Message{
		ID:          ParseID(m.ID),
		ChannelID:   ParseID(m.ChannelID),
		GuildID:     ParseID(m.GuildID),
		Created:     m.Timestamp.UTC(),
		Content:     m.Content,
		AuthorNick:  nick,
		GuildName:   guildName,
		ChannelName: channelName,
		JumpLink:    fmt.Sprintf("https://discord.com/channels/%s/%s/%s", m.GuildID, m.ChannelID, m.ID),
	}
	if m.Author != nil {
		msg.AuthorID = ParseID(m.Author.ID)
		msg.AuthorName = m.Author.Username
		msg.AuthorBot = m.Author.Bot
	}
	if m.MessageReference != nil {
		msg.ReferenceID = ParseID(m.MessageReference.MessageID)
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, Attachment{
			ID:       ParseID(a.ID),
			Filename: a.Filename,
			URL:      a.URL,
			Size:     a.Size,
			Width:    a.Width,
			Height:   a.Height,
			Spoiler:  strings.HasPrefix(a.Filename, "SPOILER_"),
		})
	}
	for _, e := range m.Embeds {
		msg.Embeds = append(msg.Embeds, embedFrom(e))
	}
	for _, u := range m.Mentions {
		msg.MentionUser = append(msg.MentionUser, ParseID(u.ID))
	}
	for _, r := range m.MentionRoles {
		msg.MentionRole = append(msg.MentionRole, ParseID(r))
	}
	return msg
}

func embedFrom(e *discordgo.MessageEmbed) Embed {
	out := Embed{
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
		Color:       e.Color,
	}
	if e.Footer != nil {
		out.Footer = e.Footer.Text
	}
	if e.Image != nil {
		out.ImageURL = e.Image.URL
	}
	if e.Thumbnail != nil {
		out.ThumbnailURL = e.Thumbnail.URL
	}
	if e.Video != nil {
		out.VideoURL = e.Video.URL
	}
	if e.Provider != nil {
		out.Provider = e.Provider.Name
	}
	if e.Author != nil {
		out.AuthorName = e.Author.Name
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return out
}

// FromChannel converts a guild text channel.
func FromChannel(c *discordgo.Channel) Channel {
	return Channel{
		ID:         ParseID(c.ID),
		Name:       c.Name,
		Topic:      c.Topic,
		CategoryID: ParseID(c.ParentID),
		Position:   c.Position,
		NSFW:       c.NSFW,
		Slowmode:   c.RateLimitPerUser,
	}
}

// FromCategory converts a category channel.
func FromCategory(c *discordgo.Channel) Category {
	return Category{
		ID:       ParseID(c.ID),
		Name:     c.Name,
		Position: c.Position,
	}
}

// FromThread converts a thread channel.
func FromThread(c *discordgo.Channel) Thread {
	t := Thread{
		ID:       ParseID(c.ID),
		ParentID: ParseID(c.ParentID),
		Name:     c.Name,
		OwnerID:  ParseID(c.OwnerID),
		Private:  c.Type == discordgo.ChannelTypeGuildPrivateThread,
	}
	if md := c.ThreadMetadata; md != nil {
		t.Archived = md.Archived
		t.Locked = md.Locked
		t.AutoArchiveMinutes = md.AutoArchiveDuration
	}
	return t
}

// FromRole converts a guild role.
func FromRole(r *discordgo.Role) Role {
	return Role{
		ID:       ParseID(r.ID),
		Name:     r.Name,
		Color:    r.Color,
		Hoisted:  r.Hoist,
		Managed:  r.Managed,
		Position: r.Position,
	}
}

// FromMember converts a guild member.
func FromMember(m *discordgo.Member) Member {
	out := Member{
		Nickname: m.Nick,
		JoinedAt: m.JoinedAt.UTC(),
	}
	if m.User != nil {
		out.UserID = ParseID(m.User.ID)
		out.Username = m.User.Username
		out.Bot = m.User.Bot
		out.Created = SnowflakeTime(out.UserID)
	}
	for _, r := range m.Roles {
		out.RoleIDs = append(out.RoleIDs, ParseID(r))
	}
	return out
}
