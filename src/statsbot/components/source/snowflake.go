package source

import (
	"strconv"
	"time"
)

// Discord's snowflake epoch, milliseconds since the Unix epoch.
const discordEpochMillis = 1420070400000

// SnowflakeTime extracts the creation time embedded in a snowflake ID.
func SnowflakeTime(id int64) time.Time {
	ms := (id >> 22) + discordEpochMillis
	return time.UnixMilli(ms).UTC()
}

// TimeToSnowflake builds the smallest snowflake at or after t, for use as a
// history cursor. Times before the Discord epoch clamp to zero.
func TimeToSnowflake(t time.Time) int64 {
	ms := t.UnixMilli() - discordEpochMillis
	if ms < 0 {
		ms = 0
	}
	return ms << 22
}

// ParseID converts a platform string ID to int64; malformed or empty IDs
// come back as zero.
func ParseID(s string) int64 {
	if s == "" {
		return 0
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// FormatID is the inverse of ParseID.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
