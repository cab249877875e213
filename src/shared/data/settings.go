package data

import (
	"os"
	"strconv"
	"sync"

	"github.com/cognita-labs/cognita/src/shared/types"
	"gorm.io/gorm"
)

var (
	settingsCache map[string]string
	settingsMu    sync.RWMutex
)

// LoadSettings loads all settings from database into cache
func LoadSettings(db *gorm.DB) error {
	var settings []types.Setting
	if err := db.Find(&settings).Error; err != nil {
		return err
	}

	settingsMu.Lock()
	defer settingsMu.Unlock()

	settingsCache = make(map[string]string)
	for _, s := range settings {
		settingsCache[s.Name] = s.Value
	}

	return nil
}

// GetSetting retrieves a setting value by name
func GetSetting(name string) string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settingsCache[name]
}

// Lookup reads a setting with an environment fallback; a fresh install has
// an empty settings table and configures through the environment alone.
func Lookup(name, envKey string) string {
	if v := GetSetting(name); v != "" {
		return v
	}
	return os.Getenv(envKey)
}

// LookupID is Lookup for numeric platform IDs. Missing or malformed values
// come back zero, which callers treat as unset.
func LookupID(name, envKey string) int64 {
	v := Lookup(name, envKey)
	if v == "" {
		return 0
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// RefreshSettings reloads settings from database
func RefreshSettings(db *gorm.DB) error {
	return LoadSettings(db)
}
