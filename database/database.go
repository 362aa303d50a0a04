// Package database owns the gorm connection, schema migration and the
// seeded setting defaults.
package database

import (
	"os"
	"path/filepath"

	"confighub/database/model"
	"confighub/util/common"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// defaultSettings are seeded on first initialization; existing keys are
// left untouched so admin changes survive restarts.
var defaultSettings = map[string]string{
	"send_clients":     "true",
	"batch_size":       "5",
	"interval":         "120",
	"delay":            "0",
	"reminder_enabled": "true",
	"daily_limit":      "200",
	"stop_sending":     "false",
	"total_configs":    "0",
}

// InitDB opens the database for the given driver, migrates the schema and
// seeds default settings. It must be called once before GetDB.
func InitDB(driver string, dsn string) error {
	var dialector gorm.Dialector

	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return err
			}
		}
		dialector = sqlite.Open(dsn)
	default:
		return common.NewErrorf("unsupported database driver: %s", driver)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}
	db = gormDB

	if err := migrate(); err != nil {
		return err
	}
	return seedDefaultSettings()
}

func migrate() error {
	return db.AutoMigrate(
		&model.ConfigRecord{},
		&model.Setting{},
		&model.DailyStat{},
		&model.Channel{},
	)
}

func seedDefaultSettings() error {
	for key, value := range defaultSettings {
		err := db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.Setting{Key: key, Value: value}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// GetDB returns the shared gorm handle.
func GetDB() *gorm.DB {
	return db
}

// CloseDB closes the underlying connection. Safe to call when never opened.
func CloseDB() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	db = nil
	return sqlDB.Close()
}
