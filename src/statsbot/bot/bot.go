package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cognita-labs/cognita/src/statsbot/components/crawler"
	"github.com/cognita-labs/cognita/src/statsbot/components/digest"
	"github.com/cognita-labs/cognita/src/statsbot/components/listeners"
	"github.com/cognita-labs/cognita/src/statsbot/components/source"
	"github.com/cognita-labs/cognita/src/statsbot/components/store"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Config struct {
	Token           string
	AdminUserID     string
	ReportChannelID string

	CosmeticRoleID   int64
	CosmeticLinkedID int64
	BackfillEpoch    time.Time

	DB    *gorm.DB
	Redis *redis.Client
}

type Bot struct {
	session    *discordgo.Session
	db         *gorm.DB
	rdb        *redis.Client
	config     Config
	store      *store.Store
	crawler    *crawler.Crawler
	listeners  *listeners.Listeners
	controller *listeners.Controller
	reporter   *digest.Reporter
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	firstReady sync.Once
}

func New(config Config) (*Bot, error) {
	// Create Discord session
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	bot := &Bot{
		session: dg,
		db:      config.DB,
		rdb:     config.Redis,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}

	bot.initializeComponents()

	// Only the bookkeeping handlers register up front; the live listener set
	// waits for the backfill to finish.
	dg.AddHandler(bot.handleReady)
	dg.AddHandler(bot.handleCommand)

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildEmojis

	return bot, nil
}

func (b *Bot) initializeComponents() {
	b.store = store.New(b.db)

	publisher := crawler.NewPublisher(b.rdb)
	b.crawler = crawler.New(crawler.Config{
		Source: source.NewDiscord(b.session),
		Store:  b.store,
		Epoch:  b.config.BackfillEpoch,
		OnProgress: func(p crawler.Progress) {
			crawler.LogProgress(p)
			publisher.Publish(p)
		},
	})

	b.listeners = listeners.New(listeners.Config{
		Store:            b.store,
		CosmeticRoleID:   b.config.CosmeticRoleID,
		CosmeticLinkedID: b.config.CosmeticLinkedID,
	})
	b.controller = listeners.NewController()

	b.reporter = digest.New(digest.Config{
		Store:           b.store,
		Session:         b.session,
		ReportChannelID: b.config.ReportChannelID,
		AdminUserID:     b.config.AdminUserID,
	})
}

func (b *Bot) Start() error {
	return b.session.Open()
}

func (b *Bot) Stop() error {
	b.cancel()
	b.controller.Deactivate()
	b.wg.Wait()
	return b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("Stats bot logged in as %s, %d guilds visible", r.User.Username, len(r.Guilds))

	b.firstReady.Do(func() {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.runBackfill(0)
		}()
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.reporter.Run(b.ctx)
		}()
	})
}

// runBackfill performs one crawl pass and, on the first clean completion,
// switches the subsystem to live-event mode.
func (b *Bot) runBackfill(days int) {
	p, err := b.crawler.Run(b.ctx, days)
	switch {
	case errors.Is(err, crawler.ErrAlreadyRunning):
		log.Println("Backfill trigger ignored: a pass is already running")
		return
	case err != nil:
		// Fatal: storage or enumeration is gone, not a per-channel problem.
		log.Printf("Backfill aborted after %d messages: %v", p.Messages, err)
		b.notifyAdmin(fmt.Sprintf("Backfill aborted: %v", err))
		return
	}

	registered := b.controller.Activate(b.session, b.listeners)
	if registered > 0 {
		log.Printf("Switched to live mode (%d listeners)", registered)
	}
}

func (b *Bot) handleCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID != b.config.AdminUserID {
		return
	}
	if !strings.HasPrefix(m.Content, "!stats") {
		return
	}

	parts := strings.Fields(m.Content)
	if len(parts) < 2 {
		s.ChannelMessageSend(m.ChannelID, "Usage: !stats backfill [days] | !stats status | !stats digest")
		return
	}

	switch parts[1] {
	case "backfill":
		days := 0
		if len(parts) > 2 {
			n, err := strconv.Atoi(parts[2])
			if err != nil || n < 0 {
				s.ChannelMessageSend(m.ChannelID, "days must be a non-negative number")
				return
			}
			days = n
		}
		if b.crawler.Running() {
			s.ChannelMessageSend(m.ChannelID, "A backfill pass is already running.")
			return
		}
		s.ChannelMessageSend(m.ChannelID, "Backfill started.")
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.runBackfill(days)
		}()

	case "status":
		totals, err := b.store.Totals(b.ctx)
		if err != nil {
			s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Status query failed: %v", err))
			return
		}
		state := "live"
		if b.crawler.Running() {
			state = "backfilling"
		} else if !b.controller.Active() {
			state = "starting"
		}
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf(
			"Mode: %s | messages=%d users=%d guilds=%d channels=%d threads=%d reactions=%d",
			state, totals.Messages, totals.Users, totals.Guilds,
			totals.Channels, totals.Threads, totals.Reactions))

	case "digest":
		if err := b.reporter.Report(b.ctx); err != nil {
			s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Digest failed: %v", err))
		}
	}
}

func (b *Bot) notifyAdmin(msg string) {
	ch, err := b.session.UserChannelCreate(b.config.AdminUserID)
	if err != nil {
		log.Printf("Failed to open admin DM: %v", err)
		return
	}
	if _, err := b.session.ChannelMessageSend(ch.ID, msg); err != nil {
		log.Printf("Failed to notify admin: %v", err)
	}
}
