package config

import (
	"log"
	"os"
	"time"

	"github.com/cognita-labs/cognita/src/shared/data"
	"gorm.io/gorm"
)

type Config struct {
	Token           string
	AdminUserID     string
	ReportChannelID string

	// Community rule: removing the cosmetic role also removes its linked
	// role. Zero disables the rule.
	CosmeticRoleID   int64
	CosmeticLinkedID int64

	// BackfillEpoch is the resume floor for channels never crawled.
	BackfillEpoch time.Time

	RedisURL string
}

func Load(db *gorm.DB) Config {
	// Load settings from database; env fallbacks cover a fresh install.
	if err := data.LoadSettings(db); err != nil {
		log.Printf("Failed to load settings: %v", err)
	}

	cfg := Config{
		Token:            data.Lookup("discord_token", "DISCORD_TOKEN"),
		AdminUserID:      data.Lookup("admin_user_id", "ADMIN_USER_ID"),
		ReportChannelID:  data.Lookup("report_channel_id", "REPORT_CHANNEL_ID"),
		CosmeticRoleID:   data.LookupID("cosmetic_role_id", "COSMETIC_ROLE_ID"),
		CosmeticLinkedID: data.LookupID("cosmetic_linked_role_id", "COSMETIC_LINKED_ROLE_ID"),
		RedisURL:         getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
	}

	if raw := data.Lookup("backfill_epoch", "BACKFILL_EPOCH"); raw != "" {
		epoch, err := time.Parse("2006-01-02", raw)
		if err != nil {
			log.Printf("Invalid backfill_epoch %q: %v", raw, err)
		} else {
			cfg.BackfillEpoch = epoch.UTC()
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
