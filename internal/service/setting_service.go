package service

import (
	"strconv"

	"confighub/database"
	"confighub/database/model"

	"gorm.io/gorm/clause"
)

// SettingService reads and writes the key/value runtime settings that
// throttle distribution.
type SettingService struct{}

func (s *SettingService) GetString(key string) (string, error) {
	var setting model.Setting
	// map condition so gorm quotes the column, "key" is reserved in mysql
	err := database.GetDB().Where(map[string]any{"key": key}).First(&setting).Error
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (s *SettingService) SetString(key string, value string) error {
	return database.GetDB().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&model.Setting{Key: key, Value: value}).Error
}

// Toggle flips a boolean setting and returns the new value.
func (s *SettingService) Toggle(key string) (bool, error) {
	current, err := s.getBool(key)
	if err != nil {
		return false, err
	}
	if err := s.SetString(key, strconv.FormatBool(!current)); err != nil {
		return false, err
	}
	return !current, nil
}

func (s *SettingService) getBool(key string) (bool, error) {
	value, err := s.GetString(key)
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

// getInt falls back to the given default when the key is missing or the
// stored value does not parse, so a corrupted setting never stalls the
// drain loop.
func (s *SettingService) getInt(key string, fallback int) int {
	value, err := s.GetString(key)
	if err != nil {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s *SettingService) GetBatchSize() int {
	n := s.getInt("batch_size", 5)
	if n < 1 {
		return 1
	}
	return n
}

// GetInterval returns the pause between batches, in seconds.
func (s *SettingService) GetInterval() int {
	return s.getInt("interval", 120)
}

// GetDelay returns the pause between records within a batch, in seconds.
func (s *SettingService) GetDelay() int {
	return s.getInt("delay", 0)
}

func (s *SettingService) GetDailyLimit() int {
	return s.getInt("daily_limit", 200)
}

func (s *SettingService) IsStopSending() bool {
	stopped, err := s.getBool("stop_sending")
	if err != nil {
		return false
	}
	return stopped
}

func (s *SettingService) SetStopSending(stop bool) error {
	return s.SetString("stop_sending", strconv.FormatBool(stop))
}

func (s *SettingService) IsReminderEnabled() bool {
	enabled, err := s.getBool("reminder_enabled")
	if err != nil {
		return true
	}
	return enabled
}

func (s *SettingService) IsSendClients() bool {
	enabled, err := s.getBool("send_clients")
	if err != nil {
		return true
	}
	return enabled
}

func (s *SettingService) GetTotalConfigs() int {
	return s.getInt("total_configs", 0)
}

// All returns every stored setting as a map.
func (s *SettingService) All() (map[string]string, error) {
	var settings []model.Setting
	if err := database.GetDB().Find(&settings).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(settings))
	for _, setting := range settings {
		out[setting.Key] = setting.Value
	}
	return out, nil
}
