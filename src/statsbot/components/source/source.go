package source

import (
	"context"
	"time"
)

// Source is the slice of the chat platform the stats subsystem consumes:
// structural enumeration, paginated history and a permission probe. Live
// events arrive through handler registration on the session, not through
// this interface.
type Source interface {
	// Guilds enumerates every guild the bot is a member of, with the
	// structural data (channels, threads, roles, members, emotes) attached.
	Guilds(ctx context.Context) ([]*Guild, error)

	// CanReadHistory reports whether the bot may iterate a channel's history.
	CanReadHistory(channelID int64) bool

	// History streams messages of one channel oldest-first, strictly after
	// the given time, until exhausted. fn is invoked once per message; a
	// non-nil return stops the stream and is surfaced to the caller.
	History(ctx context.Context, channelID int64, after time.Time, fn func(*Message) error) error
}

type Guild struct {
	ID      int64
	Name    string
	Created time.Time

	Categories []Category
	Channels   []Channel
	Threads    []Thread
	Roles      []Role
	Members    []Member
	Emotes     []Emote
}

type Category struct {
	ID       int64
	Name     string
	Position int
}

type Channel struct {
	ID         int64
	Name       string
	Topic      string
	CategoryID int64
	Position   int
	NSFW       bool
	Slowmode   int
}

type Thread struct {
	ID                 int64
	ParentID           int64
	Name               string
	OwnerID            int64
	ArchiverID         int64
	AutoArchiveMinutes int
	Archived           bool
	Locked             bool
	Private            bool
}

type Role struct {
	ID       int64
	Name     string
	Color    int
	Hoisted  bool
	Managed  bool
	Position int
}

type Member struct {
	UserID   int64
	Username string
	Nickname string
	Bot      bool
	Created  time.Time
	JoinedAt time.Time
	RoleIDs  []int64
}

type Emote struct {
	ID       int64
	Name     string
	Animated bool
	URL      string
}

type Message struct {
	ID          int64
	ChannelID   int64
	GuildID     int64
	Created     time.Time
	Content     string
	AuthorID    int64
	AuthorName  string
	AuthorNick  string
	AuthorBot   bool
	GuildName   string
	ChannelName string
	ReferenceID int64
	JumpLink    string

	Attachments []Attachment
	Embeds      []Embed
	MentionUser []int64
	MentionRole []int64
	Reactions   []Reaction
}

type Attachment struct {
	ID       int64
	Filename string
	URL      string
	Size     int
	Width    int
	Height   int
	Spoiler  bool
}

type Embed struct {
	Title        string
	Description  string
	URL          string
	Color        int
	Footer       string
	ImageURL     string
	ThumbnailURL string
	VideoURL     string
	Provider     string
	AuthorName   string
	Fields       []EmbedField
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Reaction struct {
	UserID int64
	Emoji  Emoji
}
