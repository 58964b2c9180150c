package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/openballot/election-api/src/api/types"
)

func newSettingsDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&types.Setting{}))
	return db
}

func TestSettingsCache(t *testing.T) {
	db := newSettingsDB(t)

	require.NoError(t, db.Create(&types.Setting{
		Name:  "reward_placeholder_description",
		Value: "Thanks for voting",
	}).Error)

	require.NoError(t, LoadSettings(db))
	assert.Equal(t, "Thanks for voting", GetSetting("reward_placeholder_description"))
	assert.Equal(t, "", GetSetting("missing_key"))

	require.NoError(t, db.Model(&types.Setting{}).
		Where("name = ?", "reward_placeholder_description").
		Update("value", "Updated").Error)

	// Cache is stale until refreshed.
	assert.Equal(t, "Thanks for voting", GetSetting("reward_placeholder_description"))
	require.NoError(t, RefreshSettings(db))
	assert.Equal(t, "Updated", GetSetting("reward_placeholder_description"))
}

func TestStartSettingsRefresh(t *testing.T) {
	db := newSettingsDB(t)

	require.NoError(t, db.Create(&types.Setting{Name: "banner", Value: "v1"}).Error)
	require.NoError(t, LoadSettings(db))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartSettingsRefresh(ctx, db, 10*time.Millisecond)

	require.NoError(t, db.Model(&types.Setting{}).
		Where("name = ?", "banner").Update("value", "v2").Error)

	assert.Eventually(t, func() bool {
		return GetSetting("banner") == "v2"
	}, time.Second, 10*time.Millisecond)
}
