package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnowflakeTime(t *testing.T) {
	// The smallest snowflake carries the Discord epoch itself.
	assert.Equal(t, time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), SnowflakeTime(0))

	stamp := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	got := SnowflakeTime(TimeToSnowflake(stamp))
	assert.True(t, got.Equal(stamp))
}

func TestTimeToSnowflakeClampsPreEpoch(t *testing.T) {
	assert.Zero(t, TimeToSnowflake(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestTimeToSnowflakeOrdering(t *testing.T) {
	a := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	b := a.Add(time.Millisecond)
	assert.Less(t, TimeToSnowflake(a), TimeToSnowflake(b))
}

func TestParseID(t *testing.T) {
	assert.Equal(t, int64(123456789012345678), ParseID("123456789012345678"))
	assert.Zero(t, ParseID(""))
	assert.Zero(t, ParseID("not-a-number"))
	assert.Equal(t, "42", FormatID(42))
}

func TestEmojiURL(t *testing.T) {
	assert.Equal(t, "https://cdn.discordapp.com/emojis/555.png", CustomEmoji(555, "fire", false).URL())
	assert.Equal(t, "https://cdn.discordapp.com/emojis/555.gif", CustomEmoji(555, "fire", true).URL())
	assert.Empty(t, UnicodeEmoji("🔥").URL())
}
