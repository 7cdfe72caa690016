package app

import (
	"sync"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/pkg/common"
)

const configCacheTTL = 30 * time.Second

// ConfigManager reads runtime settings from sys_config with a short
// cache so hot paths (payment signing) do not hit the database per
// request.
type ConfigManager struct {
	db *gorm.DB

	mu       sync.RWMutex
	cache    map[string]string
	cachedAt time.Time
}

func NewConfigManager(db *gorm.DB) *ConfigManager {
	return &ConfigManager{
		db:    db,
		cache: make(map[string]string),
	}
}

func (m *ConfigManager) GetString(category, name string) string {
	key := category + "." + name
	m.mu.RLock()
	if time.Since(m.cachedAt) < configCacheTTL {
		value, found := m.cache[key]
		m.mu.RUnlock()
		if found {
			return value
		}
		return ""
	}
	m.mu.RUnlock()

	m.reload()

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache[key]
}

func (m *ConfigManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(m.GetString(category, name))
}

func (m *ConfigManager) GetBool(category, name string) bool {
	return cast.ToBool(m.GetString(category, name))
}

// SetValue upserts one setting and invalidates the cache.
func (m *ConfigManager) SetValue(category, name, value string) error {
	var cfg domain.SysConfig
	err := m.db.Where("type = ? and name = ?", category, name).First(&cfg).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		err = m.db.Create(&domain.SysConfig{
			ID:    common.UUIDint64(),
			Type:  category,
			Name:  name,
			Value: value,
		}).Error
	case err == nil:
		err = m.db.Model(&domain.SysConfig{}).Where("id = ?", cfg.ID).
			Update("value", value).Error
	}
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cachedAt = time.Time{}
	m.mu.Unlock()
	return nil
}

func (m *ConfigManager) reload() {
	var rows []domain.SysConfig
	if err := m.db.Find(&rows).Error; err != nil {
		zap.L().Error("failed to reload settings", zap.Error(err))
		return
	}
	fresh := make(map[string]string, len(rows))
	for _, row := range rows {
		fresh[row.Type+"."+row.Name] = row.Value
	}
	m.mu.Lock()
	m.cache = fresh
	m.cachedAt = time.Now()
	m.mu.Unlock()
}
