package server

import (
	"encoding/json"
	"errors"
	"sort"
	"strconv"

	"github.com/Vigno04/Cooplyst-sub000/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	settingVoteThreshold = "vote_threshold"
	settingProviders     = "providers"
)

// ProviderConfig describes one external metadata provider entry of the
// ordered provider list.
type ProviderConfig struct {
	Type         string `json:"type"`
	Enabled      bool   `json:"enabled"`
	Priority     int    `json:"priority"`
	APIKey       string `json:"api_key,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// Settings is the typed view of the string-keyed settings table,
// re-read on every request that needs it.
type Settings struct {
	VoteThreshold int
	Providers     []ProviderConfig
}

func (s *Server) defaultSettings() Settings {
	settings := Settings{VoteThreshold: s.cfg.VoteThreshold}
	if s.cfg.RAWGAPIKey != "" {
		settings.Providers = append(settings.Providers, ProviderConfig{
			Type:     providerRAWG,
			Enabled:  true,
			Priority: 1,
			APIKey:   s.cfg.RAWGAPIKey,
		})
	}
	if s.cfg.IGDBClientID != "" && s.cfg.IGDBClientSecret != "" {
		settings.Providers = append(settings.Providers, ProviderConfig{
			Type:         providerIGDB,
			Enabled:      true,
			Priority:     2,
			ClientID:     s.cfg.IGDBClientID,
			ClientSecret: s.cfg.IGDBClientSecret,
		})
	}
	return settings
}

func (s *Server) loadSettings() Settings {
	settings := s.defaultSettings()
	if raw, ok := s.readSetting(settingVoteThreshold); ok {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			settings.VoteThreshold = value
		}
	}
	if raw, ok := s.readSetting(settingProviders); ok {
		var providers []ProviderConfig
		if err := json.Unmarshal([]byte(raw), &providers); err == nil {
			settings.Providers = providers
		} else {
			s.logger.Warn("ignoring malformed providers setting", "error", err)
		}
	}
	return settings
}

// EnabledProviders returns the enabled provider entries in priority
// order (ascending). The sort is stable so equal priorities keep their
// configured order.
func (settings Settings) EnabledProviders() []ProviderConfig {
	enabled := make([]ProviderConfig, 0, len(settings.Providers))
	for _, provider := range settings.Providers {
		if provider.Enabled {
			enabled = append(enabled, provider)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority < enabled[j].Priority
	})
	return enabled
}

func (s *Server) readSetting(key string) (string, bool) {
	var record db.Setting
	err := s.db.Where("key = ?", key).First(&record).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("failed to read setting", "key", key, "error", err)
		}
		return "", false
	}
	return record.Value, true
}

func (s *Server) writeSetting(key, value string) error {
	record := db.Setting{Key: key, Value: value, UpdatedAt: timeNowUTC()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
}
