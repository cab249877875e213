package data

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cognita-labs/cognita/src/shared/types"
)

func testSettingsDB(t *testing.T, settings ...types.Setting) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.Setting{}))
	for i := range settings {
		settings[i].ID = uint8(i + 1)
		require.NoError(t, db.Create(&settings[i]).Error)
	}
	require.NoError(t, LoadSettings(db))
}

func TestLookupPrefersDatabaseOverEnv(t *testing.T) {
	testSettingsDB(t, types.Setting{Name: "report_channel_id", Value: "123"})
	t.Setenv("REPORT_CHANNEL_ID", "456")

	assert.Equal(t, "123", Lookup("report_channel_id", "REPORT_CHANNEL_ID"))
}

func TestLookupFallsBackToEnv(t *testing.T) {
	testSettingsDB(t)
	t.Setenv("REPORT_CHANNEL_ID", "456")

	assert.Equal(t, "456", Lookup("report_channel_id", "REPORT_CHANNEL_ID"))
	assert.Empty(t, Lookup("missing", "ALSO_MISSING"))
}

func TestLookupID(t *testing.T) {
	testSettingsDB(t,
		types.Setting{Name: "cosmetic_role_id", Value: "123456789012345678"},
		types.Setting{Name: "broken_id", Value: "not-a-number"},
	)

	assert.Equal(t, int64(123456789012345678), LookupID("cosmetic_role_id", "COSMETIC_ROLE_ID"))
	assert.Zero(t, LookupID("broken_id", "BROKEN_ID"))
	assert.Zero(t, LookupID("missing", "MISSING"))
}
