package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cognita-labs/cognita/src/shared/data"
	"github.com/cognita-labs/cognita/src/statsbot/bot"
	"github.com/cognita-labs/cognita/src/statsbot/config"
)

func main() {
	// Connect to database first
	db := data.MustMySQL(data.GetMySQLDSN())

	if err := data.Migrate(db); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	// Load configuration from database with env fallbacks
	cfg := config.Load(db)
	if cfg.Token == "" {
		log.Fatal("DISCORD_TOKEN not set in database or environment")
	}
	if cfg.AdminUserID == "" {
		log.Fatal("ADMIN_USER_ID not set in database or environment")
	}

	rdb := data.MustRedis(cfg.RedisURL)

	b, err := bot.New(bot.Config{
		Token:            cfg.Token,
		AdminUserID:      cfg.AdminUserID,
		ReportChannelID:  cfg.ReportChannelID,
		CosmeticRoleID:   cfg.CosmeticRoleID,
		CosmeticLinkedID: cfg.CosmeticLinkedID,
		BackfillEpoch:    cfg.BackfillEpoch,
		DB:               db,
		Redis:            rdb,
	})
	if err != nil {
		log.Fatalf("Failed to create stats bot: %v", err)
	}

	if err := b.Start(); err != nil {
		log.Fatalf("Failed to start stats bot: %v", err)
	}
	log.Println("Stats bot is running. Press CTRL-C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	log.Println("Shutting down stats bot")
	if err := b.Stop(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
