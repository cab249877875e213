package digest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cognita-labs/cognita/src/shared/types"
	"github.com/cognita-labs/cognita/src/statsbot/components/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catID(id int64) *int64 { return &id }

func TestBuildGroupsByCategory(t *testing.T) {
	categories := []types.Category{{ID: 40, Name: "Community"}}
	channels := []types.Channel{
		{ID: 50, Name: "general", CategoryID: catID(40)},
		{ID: 51, Name: "random", CategoryID: catID(40)},
		{ID: 52, Name: "lonely"},
	}
	threads := []types.Thread{{ID: 60, ParentID: 50, Name: "a thread"}}
	activity := []store.ActivityRow{
		{ChannelID: 50, Count: 10},
		{ChannelID: 60, Count: 3},
		{ChannelID: 52, Count: 1},
	}

	out := Build(categories, channels, threads, activity, 14, 2, 1)

	assert.Contains(t, out, "14 messages, 2 joins, 1 leaves")
	assert.Contains(t, out, "**Community**")
	assert.Contains(t, out, "#general: 10")
	assert.Contains(t, out, "- a thread: 3")
	assert.Contains(t, out, "**Uncategorized**")
	assert.Contains(t, out, "#lonely: 1")
	// Channels with no activity and no active threads stay out of the digest.
	assert.NotContains(t, out, "#random")

	// Thread lines sit under their parent channel.
	assert.Less(t, strings.Index(out, "#general"), strings.Index(out, "a thread"))
}

func TestBuildSkipsEmptyCategories(t *testing.T) {
	categories := []types.Category{{ID: 40, Name: "Ghost Town"}}
	channels := []types.Channel{{ID: 50, Name: "general", CategoryID: catID(40)}}

	out := Build(categories, channels, nil, nil, 0, 0, 0)
	assert.NotContains(t, out, "Ghost Town")
}

func TestSplitShortStringUntouched(t *testing.T) {
	chunks := Split("hello", 2000)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello", chunks[0])
}

func TestSplitPrefersNewlines(t *testing.T) {
	var lines []string
	for i := 0; i < 100; i++ {
		lines = append(lines, strings.Repeat("x", 50))
	}
	s := strings.Join(lines, "\n")

	chunks := Split(s, 500)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 500)
		assert.False(t, strings.HasPrefix(c, "\n"))
		assert.False(t, strings.HasSuffix(c, "\n"))
	}
	assert.Equal(t, strings.ReplaceAll(s, "\n", ""), strings.ReplaceAll(strings.Join(chunks, ""), "\n", ""))
}

func TestSplitNeverBisectsRunes(t *testing.T) {
	// An emoji-heavy run with no newlines forces hard cuts; every chunk must
	// stay valid UTF-8 and within the character limit.
	s := strings.Repeat("🔥", 150)
	chunks := Split(s, 100)
	require.Greater(t, len(chunks), 1)
	rejoined := ""
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c))
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
		rejoined += c
	}
	assert.Equal(t, s, rejoined)
}

func TestSplitHandlesUnbrokenRun(t *testing.T) {
	s := strings.Repeat("x", 4500)
	chunks := Split(s, 2000)
	require.Len(t, chunks, 3)
	total := 0
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 2000)
		total += len(c)
	}
	assert.Equal(t, 4500, total)
}
