package service

import (
	"time"

	"confighub/database"
	"confighub/database/model"
	"confighub/logger"

	"gorm.io/gorm/clause"
)

// ChannelService manages the registry of destination channels.
type ChannelService struct{}

func (s *ChannelService) Add(channelId string, channelName string) error {
	return database.GetDB().Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Channel{
			ChannelId:   channelId,
			ChannelName: channelName,
			AddedAt:     time.Now(),
		}).Error
}

func (s *ChannelService) Remove(channelId string) error {
	return database.GetDB().
		Where("channel_id = ?", channelId).
		Delete(&model.Channel{}).Error
}

func (s *ChannelService) List() ([]*model.Channel, error) {
	var channels []*model.Channel
	err := database.GetDB().Order("added_at").Find(&channels).Error
	return channels, err
}

// ListIds returns just the channel identifiers, in registration order.
func (s *ChannelService) ListIds() ([]string, error) {
	channels, err := s.List()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ChannelId)
	}
	return ids, nil
}

// SyncFromConfig registers configured channels that are not in the
// database yet. Channels added at runtime are kept.
func (s *ChannelService) SyncFromConfig(channelIds []string) error {
	for _, id := range channelIds {
		if err := s.Add(id, id); err != nil {
			return err
		}
	}
	count, err := s.count()
	if err == nil {
		logger.Infof("channel registry synced, %d destination(s)", count)
	}
	return nil
}

func (s *ChannelService) count() (int64, error) {
	var count int64
	err := database.GetDB().Model(&model.Channel{}).Count(&count).Error
	return count, err
}
