package listeners

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/cognita-labs/cognita/src/shared/types"
	"github.com/cognita-labs/cognita/src/statsbot/components/source"
	"github.com/cognita-labs/cognita/src/statsbot/components/store"
)

type Config struct {
	Store *store.Store

	// CosmeticRoleID and its linked role: a community rule, when the
	// cosmetic role is revoked the linked role is removed with it. Both come
	// from configuration; zero disables the rule.
	CosmeticRoleID   int64
	CosmeticLinkedID int64
}

// Listeners translates live gateway events into the same store operations
// the backfill crawler uses, plus the change-audit trail for mutable fields.
type Listeners struct {
	cfg Config
}

func New(cfg Config) *Listeners {
	return &Listeners{cfg: cfg}
}

// handlers is the full live set, in registration order.
func (l *Listeners) handlers() []interface{} {
	return []interface{}{
		l.HandleMessageCreate,
		l.HandleMessageUpdate,
		l.HandleMessageDelete,
		l.HandleReactionAdd,
		l.HandleReactionRemove,
		l.HandleMemberAdd,
		l.HandleMemberRemove,
		l.HandleMemberUpdate,
		l.HandleUserUpdate,
		l.HandleGuildCreate,
		l.HandleGuildUpdate,
		l.HandleChannelCreate,
		l.HandleChannelUpdate,
		l.HandleChannelDelete,
		l.HandleThreadCreate,
		l.HandleThreadUpdate,
		l.HandleThreadDelete,
		l.HandleRoleCreate,
		l.HandleRoleUpdate,
		l.HandleRoleDelete,
		l.HandleEmojisUpdate,
		l.HandleVoiceStateUpdate,
	}
}

func (l *Listeners) HandleMessageCreate(s *discordgo.Session, e *discordgo.MessageCreate) {
	if e.GuildID == "" {
		// Direct messages stay out of the aggregate stats.
		return
	}
	ctx := context.Background()

	guildName, channelName := "", ""
	if g, err := s.State.Guild(e.GuildID); err == nil {
		guildName = g.Name
	}
	if ch, err := s.State.Channel(e.ChannelID); err == nil {
		channelName = ch.Name
	}
	nick := ""
	if e.Member != nil {
		nick = e.Member.Nick
	}

	msg := source.FromMessage(e.Message, guildName, channelName, nick)
	if _, err := l.cfg.Store.SaveMessage(ctx, msg); err != nil {
		log.Printf("stats: live message %s: %v", e.ID, err)
	}
}

func (l *Listeners) HandleMessageUpdate(s *discordgo.Session, e *discordgo.MessageUpdate) {
	if e.EditedTimestamp == nil {
		return
	}
	ctx := context.Background()

	id := source.ParseID(e.ID)
	old, err := l.cfg.Store.GetMessage(ctx, id)
	if err != nil {
		// Edits to messages we never stored (pre-epoch) are not tracked.
		return
	}
	if old.Content == e.Content {
		return
	}
	edit := &types.MessageEdit{
		MessageID:  id,
		OldContent: old.Content,
		NewContent: e.Content,
		EditedAt:   e.EditedTimestamp.UTC(),
	}
	if err := l.cfg.Store.RecordEdit(ctx, edit); err != nil {
		log.Printf("stats: record edit %s: %v", e.ID, err)
	}
}

func (l *Listeners) HandleMessageDelete(s *discordgo.Session, e *discordgo.MessageDelete) {
	if err := l.cfg.Store.SoftDeleteMessage(context.Background(), source.ParseID(e.ID)); err != nil {
		log.Printf("stats: delete message %s: %v", e.ID, err)
	}
}

func (l *Listeners) HandleReactionAdd(s *discordgo.Session, e *discordgo.MessageReactionAdd) {
	emoji := source.EmojiFrom(&e.Emoji)
	err := l.cfg.Store.UpsertReaction(context.Background(),
		source.ParseID(e.MessageID), source.ParseID(e.UserID), emoji)
	if err != nil {
		log.Printf("stats: reaction add on %s: %v", e.MessageID, err)
	}
}

func (l *Listeners) HandleReactionRemove(s *discordgo.Session, e *discordgo.MessageReactionRemove) {
	ctx := context.Background()
	emoji := source.EmojiFrom(&e.Emoji)
	messageID := source.ParseID(e.MessageID)
	if err := l.cfg.Store.RemoveReaction(ctx, messageID, source.ParseID(e.UserID), emoji); err != nil {
		log.Printf("stats: reaction remove on %s: %v", e.MessageID, err)
		return
	}
	if err := l.cfg.Store.Audit(ctx, "reaction", messageID, "removed", emoji.String(), e.UserID); err != nil {
		log.Printf("stats: audit reaction remove on %s: %v", e.MessageID, err)
	}
}

func (l *Listeners) HandleMemberAdd(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
	ctx := context.Background()
	m := source.FromMember(e.Member)
	guildID := source.ParseID(e.GuildID)

	if err := l.cfg.Store.UpsertUser(ctx, store.UserFromMember(&m)); err != nil {
		log.Printf("stats: member add user %d: %v", m.UserID, err)
		return
	}
	gm := types.GuildMembership{GuildID: guildID, UserID: m.UserID, Nickname: m.Nickname, JoinedAt: m.JoinedAt}
	if err := l.cfg.Store.UpsertGuildMember(ctx, &gm); err != nil {
		// A duplicate membership is stale state, not a failure.
		log.Printf("stats: membership %d/%d: %v", guildID, m.UserID, err)
	}
	l.recordMemberEvent(ctx, s, e.GuildID, &m, "join")
}

func (l *Listeners) HandleMemberRemove(s *discordgo.Session, e *discordgo.GuildMemberRemove) {
	ctx := context.Background()
	m := source.FromMember(e.Member)
	guildID := source.ParseID(e.GuildID)

	if err := l.cfg.Store.RemoveGuildMember(ctx, guildID, m.UserID); err != nil {
		log.Printf("stats: member remove %d/%d: %v", guildID, m.UserID, err)
	}
	l.recordMemberEvent(ctx, s, e.GuildID, &m, "leave")
}

func (l *Listeners) recordMemberEvent(ctx context.Context, s *discordgo.Session, guildID string, m *source.Member, direction string) {
	guildName := ""
	if g, err := s.State.Guild(guildID); err == nil {
		guildName = g.Name
	}
	ev := &types.MemberEvent{
		UserID:         m.UserID,
		Username:       m.Username,
		GuildID:        source.ParseID(guildID),
		GuildName:      guildName,
		Direction:      direction,
		AccountCreated: m.Created,
	}
	if err := l.cfg.Store.RecordMemberEvent(ctx, ev); err != nil {
		log.Printf("stats: member event %s %d: %v", direction, m.UserID, err)
	}
}

// HandleMemberUpdate diffs the member's roles against stored state, so role
// grants and revocations are detected even when the gateway omits a before
// snapshot.
func (l *Listeners) HandleMemberUpdate(s *discordgo.Session, e *discordgo.GuildMemberUpdate) {
	ctx := context.Background()
	m := source.FromMember(e.Member)
	guildID := source.ParseID(e.GuildID)

	if err := l.cfg.Store.UpsertUser(ctx, store.UserFromMember(&m)); err != nil {
		log.Printf("stats: member update user %d: %v", m.UserID, err)
		return
	}
	gm := types.GuildMembership{GuildID: guildID, UserID: m.UserID, Nickname: m.Nickname, JoinedAt: m.JoinedAt}
	if err := l.cfg.Store.UpsertGuildMember(ctx, &gm); err != nil {
		log.Printf("stats: membership %d/%d: %v", guildID, m.UserID, err)
	}

	stored, err := l.cfg.Store.RoleMemberships(ctx, guildID, m.UserID)
	if err != nil {
		log.Printf("stats: role memberships %d/%d: %v", guildID, m.UserID, err)
		return
	}
	storedSet := make(map[int64]bool, len(stored))
	for _, id := range stored {
		storedSet[id] = true
	}
	currentSet := make(map[int64]bool, len(m.RoleIDs))
	for _, id := range m.RoleIDs {
		currentSet[id] = true
	}

	for _, id := range m.RoleIDs {
		if storedSet[id] {
			continue
		}
		if err := l.cfg.Store.AddRoleMember(ctx, guildID, m.UserID, id); err != nil {
			log.Printf("stats: role grant %d to %d: %v", id, m.UserID, err)
			continue
		}
		if err := l.cfg.Store.RecordRoleChange(ctx, guildID, m.UserID, id, "grant"); err != nil {
			log.Printf("stats: role history %d/%d: %v", m.UserID, id, err)
		}
	}
	for _, id := range stored {
		if currentSet[id] {
			continue
		}
		if err := l.cfg.Store.RemoveRoleMember(ctx, m.UserID, id); err != nil {
			log.Printf("stats: role revoke %d from %d: %v", id, m.UserID, err)
			continue
		}
		if err := l.cfg.Store.RecordRoleChange(ctx, guildID, m.UserID, id, "revoke"); err != nil {
			log.Printf("stats: role history %d/%d: %v", m.UserID, id, err)
		}
		if id == l.cfg.CosmeticRoleID && l.cfg.CosmeticLinkedID != 0 {
			linked := source.FormatID(l.cfg.CosmeticLinkedID)
			if err := s.GuildMemberRoleRemove(e.GuildID, e.User.ID, linked); err != nil {
				log.Printf("stats: remove linked role %s from %s: %v", linked, e.User.ID, err)
			}
		}
	}
}

func (l *Listeners) HandleUserUpdate(s *discordgo.Session, e *discordgo.UserUpdate) {
	ctx := context.Background()
	id := source.ParseID(e.ID)

	old, err := l.cfg.Store.GetUser(ctx, id)
	if err == nil && old.Username == e.Username {
		return
	}
	u := &types.User{ID: id, Username: e.Username, Bot: e.Bot, Created: source.SnowflakeTime(id)}
	if uerr := l.cfg.Store.UpsertUser(ctx, u); uerr != nil {
		log.Printf("stats: user update %s: %v", e.ID, uerr)
		return
	}
	if err == nil {
		if aerr := l.cfg.Store.Audit(ctx, "user", id, "username", old.Username, e.Username); aerr != nil {
			log.Printf("stats: audit username %s: %v", e.ID, aerr)
		}
	}
}

func (l *Listeners) HandleGuildCreate(s *discordgo.Session, e *discordgo.GuildCreate) {
	id := source.ParseID(e.ID)
	g := &types.Guild{ID: id, Name: e.Name, Created: source.SnowflakeTime(id)}
	if err := l.cfg.Store.UpsertGuild(context.Background(), g); err != nil {
		log.Printf("stats: guild create %s: %v", e.ID, err)
	}
}

func (l *Listeners) HandleGuildUpdate(s *discordgo.Session, e *discordgo.GuildUpdate) {
	ctx := context.Background()
	id := source.ParseID(e.ID)

	var changes []store.FieldChange
	if old, err := l.cfg.Store.GetGuild(ctx, id); err == nil {
		changes = store.Diff(changes, "name", old.Name, e.Name)
	}
	g := &types.Guild{ID: id, Name: e.Name, Created: source.SnowflakeTime(id)}
	if err := l.cfg.Store.UpsertGuild(ctx, g); err != nil {
		log.Printf("stats: guild update %s: %v", e.ID, err)
		return
	}
	if err := l.cfg.Store.AuditChanges(ctx, "guild", id, changes); err != nil {
		log.Printf("stats: audit guild %s: %v", e.ID, err)
	}
}

func (l *Listeners) HandleChannelCreate(s *discordgo.Session, e *discordgo.ChannelCreate) {
	l.upsertChannel(e.Channel, nil)
}

func (l *Listeners) HandleChannelUpdate(s *discordgo.Session, e *discordgo.ChannelUpdate) {
	ctx := context.Background()
	id := source.ParseID(e.ID)

	var changes []store.FieldChange
	if e.Type == discordgo.ChannelTypeGuildCategory {
		if old, err := l.cfg.Store.GetCategory(ctx, id); err == nil {
			changes = store.Diff(changes, "name", old.Name, e.Name)
			changes = store.Diff(changes, "position", old.Position, e.Position)
		}
	} else if old, err := l.cfg.Store.GetChannel(ctx, id); err == nil {
		ch := source.FromChannel(e.Channel)
		changes = store.Diff(changes, "name", old.Name, ch.Name)
		changes = store.Diff(changes, "topic", old.Topic, ch.Topic)
		changes = store.Diff(changes, "position", old.Position, ch.Position)
		changes = store.Diff(changes, "nsfw", old.NSFW, ch.NSFW)
		changes = store.Diff(changes, "slowmode", old.Slowmode, ch.Slowmode)
		oldCat := int64(0)
		if old.CategoryID != nil {
			oldCat = *old.CategoryID
		}
		changes = store.Diff(changes, "category", oldCat, ch.CategoryID)
	}
	l.upsertChannel(e.Channel, changes)
}

func (l *Listeners) upsertChannel(c *discordgo.Channel, changes []store.FieldChange) {
	ctx := context.Background()
	guildID := source.ParseID(c.GuildID)
	id := source.ParseID(c.ID)

	var err error
	if c.Type == discordgo.ChannelTypeGuildCategory {
		cat := source.FromCategory(c)
		err = l.cfg.Store.UpsertCategory(ctx, &types.Category{
			ID: cat.ID, GuildID: guildID, Name: cat.Name, Position: cat.Position,
		})
	} else {
		ch := source.FromChannel(c)
		row := types.Channel{
			ID: ch.ID, GuildID: guildID, Name: ch.Name, Topic: ch.Topic,
			Position: ch.Position, NSFW: ch.NSFW, Slowmode: ch.Slowmode,
		}
		if ch.CategoryID != 0 {
			cat := ch.CategoryID
			row.CategoryID = &cat
		}
		err = l.cfg.Store.UpsertChannel(ctx, &row)
	}
	if err != nil {
		log.Printf("stats: channel upsert %s: %v", c.ID, err)
		return
	}
	if err := l.cfg.Store.AuditChanges(ctx, "channel", id, changes); err != nil {
		log.Printf("stats: audit channel %s: %v", c.ID, err)
	}
}

func (l *Listeners) HandleChannelDelete(s *discordgo.Session, e *discordgo.ChannelDelete) {
	ctx := context.Background()
	id := source.ParseID(e.ID)

	var err error
	if e.Type == discordgo.ChannelTypeGuildCategory {
		err = l.cfg.Store.SoftDeleteCategory(ctx, id)
	} else {
		err = l.cfg.Store.SoftDeleteChannel(ctx, id)
	}
	if err != nil {
		log.Printf("stats: channel delete %s: %v", e.ID, err)
		return
	}
	if err := l.cfg.Store.Audit(ctx, "channel", id, "deleted", false, true); err != nil {
		log.Printf("stats: audit channel delete %s: %v", e.ID, err)
	}
}

func (l *Listeners) HandleThreadCreate(s *discordgo.Session, e *discordgo.ThreadCreate) {
	l.upsertThread(e.Channel, nil)
}

func (l *Listeners) HandleThreadUpdate(s *discordgo.Session, e *discordgo.ThreadUpdate) {
	ctx := context.Background()
	id := source.ParseID(e.ID)

	var changes []store.FieldChange
	if old, err := l.cfg.Store.GetThread(ctx, id); err == nil {
		th := source.FromThread(e.Channel)
		changes = store.Diff(changes, "name", old.Name, th.Name)
		changes = store.Diff(changes, "archived", old.Archived, th.Archived)
		changes = store.Diff(changes, "locked", old.Locked, th.Locked)
		changes = store.Diff(changes, "auto_archive_minutes", old.AutoArchiveMinutes, th.AutoArchiveMinutes)
	}
	l.upsertThread(e.Channel, changes)
}

func (l *Listeners) upsertThread(c *discordgo.Channel, changes []store.FieldChange) {
	ctx := context.Background()
	th := source.FromThread(c)
	row := types.Thread{
		ID:                 th.ID,
		GuildID:            source.ParseID(c.GuildID),
		ParentID:           th.ParentID,
		Name:               th.Name,
		OwnerID:            th.OwnerID,
		AutoArchiveMinutes: th.AutoArchiveMinutes,
		Archived:           th.Archived,
		Locked:             th.Locked,
		Private:            th.Private,
	}
	if err := l.cfg.Store.UpsertThread(ctx, &row); err != nil {
		log.Printf("stats: thread upsert %s: %v", c.ID, err)
		return
	}
	if err := l.cfg.Store.AuditChanges(ctx, "thread", th.ID, changes); err != nil {
		log.Printf("stats: audit thread %s: %v", c.ID, err)
	}
}

func (l *Listeners) HandleThreadDelete(s *discordgo.Session, e *discordgo.ThreadDelete) {
	ctx := context.Background()
	id := source.ParseID(e.ID)
	if err := l.cfg.Store.SoftDeleteThread(ctx, id); err != nil {
		log.Printf("stats: thread delete %s: %v", e.ID, err)
		return
	}
	if err := l.cfg.Store.Audit(ctx, "thread", id, "deleted", false, true); err != nil {
		log.Printf("stats: audit thread delete %s: %v", e.ID, err)
	}
}

func (l *Listeners) HandleRoleCreate(s *discordgo.Session, e *discordgo.GuildRoleCreate) {
	l.upsertRole(e.GuildID, e.Role, nil)
}

func (l *Listeners) HandleRoleUpdate(s *discordgo.Session, e *discordgo.GuildRoleUpdate) {
	ctx := context.Background()
	id := source.ParseID(e.Role.ID)

	var changes []store.FieldChange
	if old, err := l.cfg.Store.GetRole(ctx, id); err == nil {
		r := source.FromRole(e.Role)
		changes = store.Diff(changes, "name", old.Name, r.Name)
		changes = store.Diff(changes, "color", old.Color, r.Color)
		changes = store.Diff(changes, "hoisted", old.Hoisted, r.Hoisted)
		changes = store.Diff(changes, "position", old.Position, r.Position)
	}
	l.upsertRole(e.GuildID, e.Role, changes)
}

func (l *Listeners) upsertRole(guildID string, dr *discordgo.Role, changes []store.FieldChange) {
	ctx := context.Background()
	r := source.FromRole(dr)
	row := types.Role{
		ID:       r.ID,
		GuildID:  source.ParseID(guildID),
		Name:     r.Name,
		Color:    r.Color,
		Hoisted:  r.Hoisted,
		Managed:  r.Managed,
		Position: r.Position,
	}
	if err := l.cfg.Store.UpsertRole(ctx, &row); err != nil {
		log.Printf("stats: role upsert %s: %v", dr.ID, err)
		return
	}
	if err := l.cfg.Store.AuditChanges(ctx, "role", r.ID, changes); err != nil {
		log.Printf("stats: audit role %s: %v", dr.ID, err)
	}
}

func (l *Listeners) HandleRoleDelete(s *discordgo.Session, e *discordgo.GuildRoleDelete) {
	ctx := context.Background()
	id := source.ParseID(e.RoleID)
	if err := l.cfg.Store.SoftDeleteRole(ctx, id); err != nil {
		log.Printf("stats: role delete %s: %v", e.RoleID, err)
		return
	}
	if err := l.cfg.Store.Audit(ctx, "role", id, "deleted", false, true); err != nil {
		log.Printf("stats: audit role delete %s: %v", e.RoleID, err)
	}
}

func (l *Listeners) HandleEmojisUpdate(s *discordgo.Session, e *discordgo.GuildEmojisUpdate) {
	ctx := context.Background()
	guildID := source.ParseID(e.GuildID)
	for _, em := range e.Emojis {
		emoji := source.EmojiFrom(em)
		if emoji.Kind != source.EmojiCustom {
			continue
		}
		row := types.Emote{ID: emoji.ID, GuildID: guildID, Name: emoji.Name, Animated: emoji.Animated, URL: emoji.URL()}
		if err := l.cfg.Store.UpsertEmote(ctx, &row); err != nil {
			log.Printf("stats: emote upsert %s: %v", em.ID, err)
		}
	}
}

// HandleVoiceStateUpdate records an audit trail only; there is no persisted
// current-voice-state table.
func (l *Listeners) HandleVoiceStateUpdate(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	ctx := context.Background()
	userID := source.ParseID(e.UserID)

	before := e.BeforeUpdate
	if before == nil {
		before = &discordgo.VoiceState{}
	}
	var changes []store.FieldChange
	changes = store.Diff(changes, "channel", before.ChannelID, e.ChannelID)
	changes = store.Diff(changes, "deaf", before.Deaf, e.Deaf)
	changes = store.Diff(changes, "mute", before.Mute, e.Mute)
	changes = store.Diff(changes, "self_deaf", before.SelfDeaf, e.SelfDeaf)
	changes = store.Diff(changes, "self_mute", before.SelfMute, e.SelfMute)
	changes = store.Diff(changes, "self_stream", before.SelfStream, e.SelfStream)
	changes = store.Diff(changes, "self_video", before.SelfVideo, e.SelfVideo)
	changes = store.Diff(changes, "suppress", before.Suppress, e.Suppress)

	if err := l.cfg.Store.AuditChanges(ctx, "voice", userID, changes); err != nil {
		log.Printf("stats: audit voice %s: %v", e.UserID, err)
	}
}
