package source

import "fmt"

type EmojiKind int

const (
	EmojiUnicode EmojiKind = iota
	EmojiCustom
)

// Emoji is a tagged variant: either a plain unicode glyph or a guild custom
// emote. The discriminant is decided once where the platform payload is
// parsed; storage routing switches on Kind.
type Emoji struct {
	Kind     EmojiKind
	Unicode  string
	ID       int64
	Name     string
	Animated bool
}

func UnicodeEmoji(glyph string) Emoji {
	return Emoji{Kind: EmojiUnicode, Unicode: glyph}
}

func CustomEmoji(id int64, name string, animated bool) Emoji {
	return Emoji{Kind: EmojiCustom, ID: id, Name: name, Animated: animated}
}

// URL returns the CDN location of a custom emote, empty for unicode.
func (e Emoji) URL() string {
	if e.Kind != EmojiCustom {
		return ""
	}
	ext := "png"
	if e.Animated {
		ext = "gif"
	}
	return fmt.Sprintf("https://cdn.discordapp.com/emojis/%d.%s", e.ID, ext)
}

func (e Emoji) String() string {
	if e.Kind == EmojiCustom {
		return e.Name
	}
	return e.Unicode
}
