package digest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/cognita-labs/cognita/src/shared/types"
	"github.com/cognita-labs/cognita/src/statsbot/components/store"
)

// Discord rejects messages above this size; the digest splits before it.
const messageLimit = 2000

type Config struct {
	Store   *store.Store
	Session *discordgo.Session

	ReportChannelID string
	AdminUserID     string
	Interval        time.Duration
}

// Reporter posts a daily activity rollup to the configured channel.
type Reporter struct {
	cfg Config
}

func New(cfg Config) *Reporter {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	return &Reporter{cfg: cfg}
}

func (r *Reporter) Run(ctx context.Context) {
	log.Println("Starting daily stats reporter")
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping daily stats reporter")
			return
		case <-ticker.C:
			if err := r.Report(ctx); err != nil {
				log.Printf("Error posting daily digest: %v", err)
			}
		}
	}
}

// Report builds and posts one digest for the trailing 24 hours.
func (r *Reporter) Report(ctx context.Context) error {
	now := time.Now().UTC()

	// Stale rollups are better than no report.
	if err := r.cfg.Store.RefreshDailyStats(ctx, now); err != nil {
		log.Printf("stats: rollup refresh failed, reporting from stale data: %v", err)
	}

	since := now.Add(-24 * time.Hour)
	activity, err := r.cfg.Store.ActivitySince(ctx, since)
	if err != nil {
		return fmt.Errorf("activity query: %w", err)
	}

	var total int64
	for _, row := range activity {
		total += row.Count
	}
	if total == 0 {
		return r.notifyAdmin("No messages recorded in the last 24 hours; the stats pipeline may be stalled.")
	}

	joins, leaves, err := r.cfg.Store.MemberFlowSince(ctx, since)
	if err != nil {
		return fmt.Errorf("member flow query: %w", err)
	}
	categories, err := r.cfg.Store.AllCategories(ctx)
	if err != nil {
		return fmt.Errorf("categories: %w", err)
	}
	channels, err := r.cfg.Store.AllChannels(ctx)
	if err != nil {
		return fmt.Errorf("channels: %w", err)
	}
	threads, err := r.cfg.Store.AllThreads(ctx)
	if err != nil {
		return fmt.Errorf("threads: %w", err)
	}

	body := Build(categories, channels, threads, activity, total, joins, leaves)
	for _, chunk := range Split(body, messageLimit) {
		if _, err := r.cfg.Session.ChannelMessageSend(r.cfg.ReportChannelID, chunk); err != nil {
			return fmt.Errorf("post digest: %w", err)
		}
	}
	return nil
}

func (r *Reporter) notifyAdmin(msg string) error {
	ch, err := r.cfg.Session.UserChannelCreate(r.cfg.AdminUserID)
	if err != nil {
		return fmt.Errorf("open admin DM: %w", err)
	}
	if _, err := r.cfg.Session.ChannelMessageSend(ch.ID, msg); err != nil {
		return fmt.Errorf("notify admin: %w", err)
	}
	return nil
}

// Build renders the hierarchical category -> channel -> thread digest.
func Build(categories []types.Category, channels []types.Channel, threads []types.Thread,
	activity []store.ActivityRow, total, joins, leaves int64) string {

	counts := make(map[int64]int64, len(activity))
	for _, row := range activity {
		counts[row.ChannelID] = row.Count
	}
	threadsByParent := make(map[int64][]types.Thread)
	for _, t := range threads {
		threadsByParent[t.ParentID] = append(threadsByParent[t.ParentID], t)
	}
	channelsByCategory := make(map[int64][]types.Channel)
	for _, ch := range channels {
		cat := int64(0)
		if ch.CategoryID != nil {
			cat = *ch.CategoryID
		}
		channelsByCategory[cat] = append(channelsByCategory[cat], ch)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Daily stats** — %d messages, %d joins, %d leaves\n", total, joins, leaves)

	writeCategory := func(name string, chs []types.Channel) {
		var lines []string
		for _, ch := range chs {
			chCount := counts[ch.ID]
			var threadLines []string
			for _, t := range threadsByParent[ch.ID] {
				if tc := counts[t.ID]; tc > 0 {
					threadLines = append(threadLines, fmt.Sprintf("    - %s: %d", t.Name, tc))
				}
			}
			if chCount == 0 && len(threadLines) == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("  #%s: %d", ch.Name, chCount))
			lines = append(lines, threadLines...)
		}
		if len(lines) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n**%s**\n", name)
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}

	for _, cat := range categories {
		writeCategory(cat.Name, channelsByCategory[cat.ID])
	}
	writeCategory("Uncategorized", channelsByCategory[0])

	return strings.TrimRight(b.String(), "\n")
}

// Split breaks a digest into chunks below the platform message limit,
// preferring newline boundaries. The limit counts runes, matching how the
// platform counts characters, and a forced cut never lands inside a rune.
func Split(s string, limit int) []string {
	if utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}
	var out []string
	for utf8.RuneCountInString(s) > limit {
		window := runePrefix(s, limit)
		cut := strings.LastIndex(window, "\n")
		if cut <= 0 {
			cut = len(window)
		}
		out = append(out, strings.TrimRight(s[:cut], "\n"))
		s = strings.TrimLeft(s[cut:], "\n")
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// runePrefix returns the prefix of s holding at most n runes.
func runePrefix(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
