package config

import (
	"log"
	"strings"

	"github.com/cognita-labs/cognita/src/shared/data"
	"gorm.io/gorm"
)

type Config struct {
	Port      string
	JWTSecret string
	RedisURL  string

	// Origins allowed to call the API from a browser dashboard.
	AllowedOrigins []string
}

func Load(db *gorm.DB) Config {
	if err := data.LoadSettings(db); err != nil {
		log.Printf("Failed to load settings: %v", err)
	}

	lookup := func(name, envKey, def string) string {
		if v := data.Lookup(name, envKey); v != "" {
			return v
		}
		return def
	}

	origins := strings.Split(lookup("stats_allowed_origins", "STATS_ALLOWED_ORIGINS", "http://localhost:3000"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return Config{
		Port:           lookup("stats_api_port", "STATS_API_PORT", "9850"),
		JWTSecret:      lookup("jwt_secret", "JWT_SECRET", ""),
		RedisURL:       lookup("redis_url", "REDIS_URL", "redis://127.0.0.1:6379/0"),
		AllowedOrigins: origins,
	}
}
