package data

import (
	"context"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/openballot/election-api/src/api/types"
)

var (
	settings   = map[string]string{}
	settingsMu sync.RWMutex
)

// LoadSettings primes the in-memory cache from the settings table. The
// fresh map is built first and swapped in whole, so readers never see a
// half-loaded cache.
func LoadSettings(db *gorm.DB) error {
	var rows []types.Setting
	if err := db.Find(&rows).Error; err != nil {
		return err
	}

	next := make(map[string]string, len(rows))
	for _, s := range rows {
		next[s.Name] = s.Value
	}

	settingsMu.Lock()
	settings = next
	settingsMu.Unlock()
	return nil
}

// GetSetting returns the cached value for name, or "" when unset.
func GetSetting(name string) string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings[name]
}

// RefreshSettings re-reads the settings table into the cache.
func RefreshSettings(db *gorm.DB) error {
	return LoadSettings(db)
}

// StartSettingsRefresh reloads the cache every interval until ctx is
// done, so operator edits to the settings table take effect without a
// restart.
func StartSettingsRefresh(ctx context.Context, db *gorm.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := RefreshSettings(db); err != nil {
					log.Printf("settings refresh: %v", err)
				}
			}
		}
	}()
}
