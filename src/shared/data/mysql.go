package data

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/cognita-labs/cognita/src/shared/types"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GetMySQLDSN returns the MySQL DSN configured via environment.
func GetMySQLDSN() string {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "cognita:cognita@tcp(127.0.0.1:3306)/cognita"
	}
	return dsn
}

func MustMySQL(dsn string) *gorm.DB {
	dsn = ensureParam(dsn, "parseTime", "true")
	if !strings.Contains(dsn, "charset=") {
		dsn = ensureParam(dsn, "charset", "utf8mb4")
		dsn = ensureParam(dsn, "collation", "utf8mb4_unicode_ci")
	}

	gormLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}

	return db
}

// Migrate creates or upgrades the stats schema. Users must exist before
// messages so the author foreign key can be created.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Setting{},
		&types.User{},
		&types.Guild{},
		&types.Category{},
		&types.Channel{},
		&types.Thread{},
		&types.Role{},
		&types.RoleMembership{},
		&types.RoleHistory{},
		&types.GuildMembership{},
		&types.Emote{},
		&types.Message{},
		&types.Attachment{},
		&types.Embed{},
		&types.EmbedField{},
		&types.Mention{},
		&types.Reaction{},
		&types.MessageEdit{},
		&types.MemberEvent{},
		&types.AuditLog{},
		&types.DailyChannelStat{},
	)
}

func ensureParam(dsn, key, val string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + val
}
