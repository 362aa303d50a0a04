// Package service provides the persistence-backed business logic of the
// distribution pipeline: config records, settings, daily stats, channels
// and the feedback loop.
package service

import (
	"strconv"
	"time"

	"confighub/database"
	"confighub/database/model"
	"confighub/internal/extract"

	"gorm.io/gorm"
)

// ConfigService manages discovered config records.
type ConfigService struct{}

// Upsert inserts a record or, when its fingerprint already exists, merges
// the extraction-derived fields into the existing row. Delivery state
// (channel/message/sentAt) and the feedback counters are never overwritten
// by a re-sighting. The running total_configs counter is incremented only
// on a true insert; inserted reports which case happened.
func (s *ConfigService) Upsert(rec *model.ConfigRecord) (inserted bool, err error) {
	db := database.GetDB()

	err = db.Transaction(func(tx *gorm.DB) error {
		var existing model.ConfigRecord
		txErr := tx.Where("fingerprint = ?", rec.Fingerprint).First(&existing).Error
		if txErr == gorm.ErrRecordNotFound {
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = time.Now()
			}
			if createErr := tx.Create(rec).Error; createErr != nil {
				return createErr
			}
			inserted = true
			return bumpTotalConfigs(tx)
		}
		if txErr != nil {
			return txErr
		}

		return tx.Model(&existing).Updates(map[string]any{
			"protocol":        rec.Protocol,
			"link":            rec.Link,
			"original_link":   rec.OriginalLink,
			"original_remark": rec.OriginalRemark,
			"server":          rec.Server,
			"port":            rec.Port,
			"location":        rec.Location,
			"ping":            rec.Ping,
			"quality":         rec.Quality,
			"source":          rec.Source,
		}).Error
	})
	return inserted, err
}

// bumpTotalConfigs increments the stored counter with a read-modify-write
// in Go; the settings value column is text, so no portable SQL arithmetic
// exists across the three supported drivers. A corrupted value restarts
// the count at zero.
func bumpTotalConfigs(tx *gorm.DB) error {
	var counter model.Setting
	if err := tx.Where(map[string]any{"key": "total_configs"}).First(&counter).Error; err != nil {
		return err
	}
	total, err := strconv.Atoi(counter.Value)
	if err != nil {
		total = 0
	}
	return tx.Model(&model.Setting{}).
		Where(map[string]any{"key": "total_configs"}).
		Update("value", strconv.Itoa(total+1)).Error
}

// Ingest upserts a batch of extracted records and returns how many were new.
func (s *ConfigService) Ingest(records []*model.ConfigRecord) (int, error) {
	insertedCount := 0
	for _, rec := range records {
		inserted, err := s.Upsert(rec)
		if err != nil {
			return insertedCount, err
		}
		if inserted {
			insertedCount++
		}
	}
	return insertedCount, nil
}

// IsDuplicate reports whether the link's fingerprint is already stored.
func (s *ConfigService) IsDuplicate(link string) (bool, error) {
	var count int64
	err := database.GetDB().Model(&model.ConfigRecord{}).
		Where("fingerprint = ?", extract.Fingerprint(link)).
		Count(&count).Error
	return count > 0, err
}

func (s *ConfigService) GetByFingerprint(fingerprint string) (*model.ConfigRecord, error) {
	var rec model.ConfigRecord
	err := database.GetDB().Where("fingerprint = ?", fingerprint).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *ConfigService) Delete(fingerprint string) error {
	return database.GetDB().
		Where("fingerprint = ?", fingerprint).
		Delete(&model.ConfigRecord{}).Error
}

// ListPending returns undelivered records ordered by creation time; a
// limit <= 0 returns all of them.
func (s *ConfigService) ListPending(limit int) ([]*model.ConfigRecord, error) {
	db := database.GetDB().
		Where("message_id IS NULL").
		Order("created_at")
	if limit > 0 {
		db = db.Limit(limit)
	}
	var records []*model.ConfigRecord
	err := db.Find(&records).Error
	return records, err
}

func (s *ConfigService) CountPending() (int64, error) {
	var count int64
	err := database.GetDB().Model(&model.ConfigRecord{}).
		Where("message_id IS NULL").
		Count(&count).Error
	return count, err
}

// MarkSent records the delivery coordinates of a config.
func (s *ConfigService) MarkSent(fingerprint string, channelId string, messageId int, sentAt time.Time) error {
	return database.GetDB().Model(&model.ConfigRecord{}).
		Where("fingerprint = ?", fingerprint).
		Updates(map[string]any{
			"channel_id": channelId,
			"message_id": messageId,
			"sent_at":    sentAt,
		}).Error
}

// IncrementBadReport atomically bumps the bad-report counter and returns
// the new value.
func (s *ConfigService) IncrementBadReport(fingerprint string) (uint, error) {
	db := database.GetDB()
	err := db.Model(&model.ConfigRecord{}).
		Where("fingerprint = ?", fingerprint).
		UpdateColumn("bad_reports", gorm.Expr("bad_reports + 1")).Error
	if err != nil {
		return 0, err
	}
	rec, err := s.GetByFingerprint(fingerprint)
	if err != nil {
		return 0, err
	}
	return rec.BadReports, nil
}

func (s *ConfigService) IncrementCopyCount(fingerprint string) error {
	return database.GetDB().Model(&model.ConfigRecord{}).
		Where("fingerprint = ?", fingerprint).
		UpdateColumn("copy_count", gorm.Expr("copy_count + 1")).Error
}

// CleanupOlderThan deletes records created more than the given number of
// days ago and returns how many were removed.
func (s *ConfigService) CleanupOlderThan(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	result := database.GetDB().
		Where("created_at < ?", cutoff).
		Delete(&model.ConfigRecord{})
	return result.RowsAffected, result.Error
}

// CollapseDuplicates removes all but the earliest-created row per
// fingerprint. This is the durable counterpart of the extractor's
// best-effort in-memory collapse. The keeper set goes through a derived
// table because mysql rejects a subquery on the delete target.
func (s *ConfigService) CollapseDuplicates() (int64, error) {
	result := database.GetDB().Exec(
		`DELETE FROM configs WHERE id NOT IN (SELECT id FROM (SELECT MIN(id) AS id FROM configs GROUP BY fingerprint) AS keepers)`)
	return result.RowsAffected, result.Error
}

func (s *ConfigService) CountAll() (int64, error) {
	var count int64
	err := database.GetDB().Model(&model.ConfigRecord{}).Count(&count).Error
	return count, err
}
