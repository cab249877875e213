package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/cognita-labs/cognita/src/shared/data"
	"github.com/cognita-labs/cognita/src/statsbot/components/crawler"
	"github.com/cognita-labs/cognita/src/statsbot/components/source"
	"github.com/cognita-labs/cognita/src/statsbot/components/store"
	"github.com/cognita-labs/cognita/src/statsbot/config"
)

var (
	daysFlag     = flag.Int("days", 0, "Limit the pass to the trailing N days (0 = full history)")
	guildFlag    = flag.Int64("guild", 0, "Restrict the pass to one guild id (0 = all)")
	progressFlag = flag.Int("progress-every", 5, "Channels between progress log lines")
)

// filteredSource narrows a Source to a single guild.
type filteredSource struct {
	source.Source
	guildID int64
}

func (f filteredSource) Guilds(ctx context.Context) ([]*source.Guild, error) {
	guilds, err := f.Source.Guilds(ctx)
	if err != nil {
		return nil, err
	}
	out := guilds[:0]
	for _, g := range guilds {
		if g.ID == f.guildID {
			out = append(out, g)
		}
	}
	return out, nil
}

func main() {
	log.SetFlags(0)
	flag.Parse()

	db := data.MustMySQL(data.GetMySQLDSN())
	if err := data.Migrate(db); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	cfg := config.Load(db)
	if cfg.Token == "" {
		log.Fatal("DISCORD_TOKEN not set in database or environment")
	}

	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		log.Fatalf("Failed to create Discord session: %v", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildEmojis
	if err := dg.Open(); err != nil {
		log.Fatalf("Failed to open Discord session: %v", err)
	}
	defer dg.Close()

	// Guild state fills in shortly after the gateway handshake.
	time.Sleep(3 * time.Second)

	var src source.Source = source.NewDiscord(dg)
	if *guildFlag != 0 {
		src = filteredSource{Source: src, guildID: *guildFlag}
	}

	c := crawler.New(crawler.Config{
		Source:        src,
		Store:         store.New(db),
		Epoch:         cfg.BackfillEpoch,
		ProgressEvery: *progressFlag,
		OnProgress:    crawler.LogProgress,
	})

	ctx, cancel := context.WithCancel(context.Background())
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sc
		log.Println("Interrupted, finishing current message")
		cancel()
	}()

	p, err := c.Run(ctx, *daysFlag)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Backfill failed after %d messages: %v", p.Messages, err)
	}
	elapsed := time.Duration(p.ElapsedSeconds * float64(time.Second)).Round(time.Second)
	log.Printf("Backfill done: %d guilds, %d channels, %d threads, %d messages, %d errors in %s",
		p.GuildsDone, p.Channels, p.Threads, p.Messages, p.Errors, elapsed)
}
