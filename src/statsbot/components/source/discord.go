package source

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
)

const historyPageSize = 100

// Discord adapts a live gateway session to the Source interface.
type Discord struct {
	session *discordgo.Session
}

func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

func (d *Discord) Guilds(ctx context.Context) ([]*Guild, error) {
	var out []*Guild
	for _, sg := range d.session.State.Guilds {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		g := &Guild{
			ID:      ParseID(sg.ID),
			Name:    sg.Name,
			Created: SnowflakeTime(ParseID(sg.ID)),
		}
		d.fillStructure(sg.ID, g)
		out = append(out, g)
	}
	return out, nil
}

// fillStructure enumerates channels/threads/roles/members/emotes. Partial
// failures leave the corresponding slice empty; the crawl works with what it
// got and the missing entities surface on the next pass or via live events.
func (d *Discord) fillStructure(guildID string, g *Guild) {
	channels, err := d.session.GuildChannels(guildID)
	if err != nil {
		log.Printf("stats: list channels for guild %s: %v", guildID, err)
	}
	for _, c := range channels {
		switch c.Type {
		case discordgo.ChannelTypeGuildCategory:
			g.Categories = append(g.Categories, FromCategory(c))
		case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
			g.Channels = append(g.Channels, FromChannel(c))
		}
	}

	if threads, err := d.session.GuildThreadsActive(guildID); err != nil {
		log.Printf("stats: list threads for guild %s: %v", guildID, err)
	} else {
		for _, t := range threads.Threads {
			g.Threads = append(g.Threads, FromThread(t))
		}
	}

	if roles, err := d.session.GuildRoles(guildID); err != nil {
		log.Printf("stats: list roles for guild %s: %v", guildID, err)
	} else {
		for _, r := range roles {
			g.Roles = append(g.Roles, FromRole(r))
		}
	}

	if emojis, err := d.session.GuildEmojis(guildID); err != nil {
		log.Printf("stats: list emotes for guild %s: %v", guildID, err)
	} else {
		for _, e := range emojis {
			em := EmojiFrom(e)
			g.Emotes = append(g.Emotes, Emote{ID: em.ID, Name: em.Name, Animated: em.Animated, URL: em.URL()})
		}
	}

	after := ""
	for {
		members, err := d.session.GuildMembers(guildID, after, 1000)
		if err != nil {
			log.Printf("stats: list members for guild %s: %v", guildID, err)
			return
		}
		for _, m := range members {
			g.Members = append(g.Members, FromMember(m))
		}
		if len(members) < 1000 {
			return
		}
		after = members[len(members)-1].User.ID
	}
}

func (d *Discord) CanReadHistory(channelID int64) bool {
	if d.session.State == nil || d.session.State.User == nil {
		return false
	}
	perms, err := d.session.UserChannelPermissions(d.session.State.User.ID, FormatID(channelID))
	if err != nil {
		return false
	}
	const needed = discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory
	return perms&needed == needed
}

func (d *Discord) History(ctx context.Context, channelID int64, after time.Time, fn func(*Message) error) error {
	chID := FormatID(channelID)
	guildID, guildName, channelName := d.channelContext(chID)

	afterID := FormatID(TimeToSnowflake(after))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := d.session.ChannelMessages(chID, historyPageSize, "", afterID, "")
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		// REST pages come newest-first; the resume cursor needs ascending order.
		sort.Slice(page, func(i, j int) bool {
			return ParseID(page[i].ID) < ParseID(page[j].ID)
		})
		for _, dm := range page {
			m := FromMessage(dm, guildName, channelName, d.nickname(guildID, dm))
			if m.GuildID == 0 {
				m.GuildID = ParseID(guildID)
			}
			d.attachReactions(chID, dm, m)
			if err := fn(m); err != nil {
				return err
			}
		}
		afterID = page[len(page)-1].ID
	}
}

// channelContext resolves guild and channel names for the denormalized
// snapshot columns, preferring gateway state over a REST round trip.
func (d *Discord) channelContext(chID string) (guildID, guildName, channelName string) {
	ch, err := d.session.State.Channel(chID)
	if err != nil {
		if ch, err = d.session.Channel(chID); err != nil {
			return "", "", ""
		}
	}
	guildID = ch.GuildID
	channelName = ch.Name
	if g, err := d.session.State.Guild(ch.GuildID); err == nil {
		guildName = g.Name
	}
	return guildID, guildName, channelName
}

func (d *Discord) nickname(guildID string, dm *discordgo.Message) string {
	if guildID == "" || dm.Author == nil {
		return ""
	}
	if member, err := d.session.State.Member(guildID, dm.Author.ID); err == nil {
		return member.Nick
	}
	return ""
}

// attachReactions resolves the user list behind each reaction summary on a
// fetched message. Best effort; a failed lookup drops that emoji only.
func (d *Discord) attachReactions(chID string, dm *discordgo.Message, m *Message) {
	for _, r := range dm.Reactions {
		if r.Emoji == nil {
			continue
		}
		users, err := d.session.MessageReactions(chID, dm.ID, r.Emoji.APIName(), 100, "", "")
		if err != nil {
			log.Printf("stats: reactions for message %s emoji %s: %v", dm.ID, r.Emoji.APIName(), err)
			continue
		}
		emoji := EmojiFrom(r.Emoji)
		for _, u := range users {
			m.Reactions = append(m.Reactions, Reaction{UserID: ParseID(u.ID), Emoji: emoji})
		}
	}
}
