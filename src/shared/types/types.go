package types

import "time"

// Discord entities mirror the IDs Discord assigns; nothing here auto-increments
// except the append-only log tables. Deletions are flag flips so historical
// messages keep resolvable parents.

// Users
type User struct {
	ID       int64  `gorm:"primaryKey;autoIncrement:false"`
	Username string `gorm:"size:128"`
	Bot      bool   `gorm:"default:false"`
	Created  time.Time
}

// Guilds (servers)
type Guild struct {
	ID      int64  `gorm:"primaryKey;autoIncrement:false"`
	Name    string `gorm:"size:128;not null"`
	Created time.Time
}

// Channel categories
type Category struct {
	ID       int64  `gorm:"primaryKey;autoIncrement:false"`
	GuildID  int64  `gorm:"index;not null"`
	Name     string `gorm:"size:128"`
	Position int
	Deleted  bool `gorm:"default:false"`
}

// Text channels
type Channel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement:false"`
	GuildID    int64  `gorm:"index;not null"`
	CategoryID *int64 `gorm:"index"`
	Name       string `gorm:"size:128"`
	Topic      string `gorm:"size:1024"`
	Position   int
	NSFW       bool `gorm:"default:false"`
	Slowmode   int  `gorm:"default:0"`
	Deleted    bool `gorm:"default:false"`
}

// Threads; thread messages land in the messages table with channel_id = thread id
type Thread struct {
	ID                 int64  `gorm:"primaryKey;autoIncrement:false"`
	GuildID            int64  `gorm:"index;not null"`
	ParentID           int64  `gorm:"index;not null"`
	Name               string `gorm:"size:128"`
	OwnerID            int64
	ArchiverID         *int64
	AutoArchiveMinutes int
	Archived           bool `gorm:"default:false"`
	Locked             bool `gorm:"default:false"`
	Private            bool `gorm:"default:false"`
	Deleted            bool `gorm:"default:false"`
}

// Roles
type Role struct {
	ID       int64  `gorm:"primaryKey;autoIncrement:false"`
	GuildID  int64  `gorm:"index;not null"`
	Name     string `gorm:"size:128"`
	Color    int
	Hoisted  bool `gorm:"default:false"`
	Managed  bool `gorm:"default:false"`
	Position int
	Deleted  bool `gorm:"default:false"`
}

// Current role membership; history of grants lives in RoleHistory
type RoleMembership struct {
	UserID  int64 `gorm:"primaryKey;autoIncrement:false"`
	RoleID  int64 `gorm:"primaryKey;autoIncrement:false"`
	GuildID int64 `gorm:"index;not null"`
}

// Append-only record of role grants and revocations
type RoleHistory struct {
	ID        uint64 `gorm:"primaryKey"`
	UserID    int64  `gorm:"index;not null"`
	RoleID    int64  `gorm:"index;not null"`
	GuildID   int64  `gorm:"index"`
	Action    string `gorm:"size:16;not null"` // grant | revoke
	CreatedAt time.Time
}

// Current guild membership
type GuildMembership struct {
	GuildID  int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID   int64 `gorm:"primaryKey;autoIncrement:false"`
	Nickname string `gorm:"size:128"`
	JoinedAt time.Time
}

// Custom guild emotes
type Emote struct {
	ID       int64  `gorm:"primaryKey;autoIncrement:false"`
	GuildID  int64  `gorm:"index;not null"`
	Name     string `gorm:"size:128"`
	Animated bool   `gorm:"default:false"`
	URL      string `gorm:"size:256"`
	Deleted  bool   `gorm:"default:false"`
}

// Messages. Author/guild/channel names are denormalized snapshots so history
// renders correctly even after renames.
type Message struct {
	ID          int64 `gorm:"primaryKey;autoIncrement:false"`
	Created     time.Time `gorm:"index"`
	Content     string    `gorm:"type:text"`
	AuthorID    int64     `gorm:"index;not null"`
	Author      *User     `gorm:"foreignKey:AuthorID;references:ID"`
	GuildID     int64     `gorm:"index"`
	ChannelID   int64     `gorm:"index"`
	AuthorName  string    `gorm:"size:128"`
	AuthorNick  string    `gorm:"size:128"`
	GuildName   string    `gorm:"size:128"`
	ChannelName string    `gorm:"size:128"`
	ReferenceID *int64
	JumpLink    string `gorm:"size:256"`
	Bot         bool   `gorm:"default:false"`
	Deleted     bool   `gorm:"default:false"`
}

// Message attachments
type Attachment struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	MessageID int64 `gorm:"index;not null"`
	Filename  string `gorm:"size:256"`
	URL       string `gorm:"size:512"`
	Size      int
	Width     int
	Height    int
	Spoiler   bool `gorm:"default:false"`
}

// Message embeds; fields hang off the auto-assigned embed id
type Embed struct {
	ID           uint64 `gorm:"primaryKey"`
	MessageID    int64  `gorm:"index;not null"`
	Title        string `gorm:"size:256"`
	Description  string `gorm:"type:text"`
	URL          string `gorm:"size:512"`
	Color        int
	Footer       string `gorm:"size:512"`
	ImageURL     string `gorm:"size:512"`
	ThumbnailURL string `gorm:"size:512"`
	VideoURL     string `gorm:"size:512"`
	Provider     string `gorm:"size:256"`
	AuthorName   string `gorm:"size:256"`
}

type EmbedField struct {
	ID      uint64 `gorm:"primaryKey"`
	EmbedID uint64 `gorm:"index;not null"`
	Name    string `gorm:"size:256"`
	Value   string `gorm:"type:text"`
	Inline  bool   `gorm:"default:false"`
}

// User and role mentions extracted per message
type Mention struct {
	ID        uint64 `gorm:"primaryKey"`
	MessageID int64  `gorm:"index;not null"`
	TargetID  int64  `gorm:"not null"`
	Kind      string `gorm:"size:8;not null"` // user | role
}

// Reactions. Exactly one of unicode_emoji / emoji_id carries the identity; the
// composite unique key keeps a plain glyph and a same-named custom emote from
// colliding. Un-reacting flips Removed so the trail stays auditable.
type Reaction struct {
	ID           uint64 `gorm:"primaryKey"`
	MessageID    int64  `gorm:"uniqueIndex:uq_reaction;not null"`
	UserID       int64  `gorm:"uniqueIndex:uq_reaction;not null"`
	EmojiID      int64  `gorm:"uniqueIndex:uq_reaction;default:0"`
	UnicodeEmoji string `gorm:"uniqueIndex:uq_reaction;size:64;default:''"`
	EmojiName    string `gorm:"size:128"`
	Animated     bool   `gorm:"default:false"`
	EmojiURL     string `gorm:"size:256"`
	Removed      bool   `gorm:"default:false"`
}

// Append-only edit trail; the live row keeps only the latest content
type MessageEdit struct {
	ID         uint64 `gorm:"primaryKey"`
	MessageID  int64  `gorm:"index;not null"`
	OldContent string `gorm:"type:text"`
	NewContent string `gorm:"type:text"`
	EditedAt   time.Time
	CreatedAt  time.Time
}

// Join/leave trail, independent of the users table so departures survive
type MemberEvent struct {
	ID             uint64 `gorm:"primaryKey"`
	UserID         int64  `gorm:"index;not null"`
	Username       string `gorm:"size:128"`
	GuildID        int64  `gorm:"index;not null"`
	GuildName      string `gorm:"size:128"`
	Direction      string `gorm:"size:8;not null"` // join | leave
	AccountCreated time.Time
	CreatedAt      time.Time
}

// Generic audit trail for mutable fields across every tracked entity kind
type AuditLog struct {
	ID        uint64 `gorm:"primaryKey"`
	Kind      string `gorm:"size:32;index;not null"`
	EntityID  int64  `gorm:"index;not null"`
	Field     string `gorm:"size:64;not null"`
	OldValue  string `gorm:"size:1024"`
	NewValue  string `gorm:"size:1024"`
	CreatedAt time.Time
}

// Rollup refreshed by the daily reporter; stands in for a materialized view
type DailyChannelStat struct {
	Day          time.Time `gorm:"primaryKey;autoIncrement:false"`
	ChannelID    int64     `gorm:"primaryKey;autoIncrement:false"`
	GuildID      int64     `gorm:"index"`
	CategoryID   int64
	ChannelName  string `gorm:"size:128"`
	MessageCount int64
}

// Settings
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;not null"`
	Value string `gorm:"size:256;not null"`
}
