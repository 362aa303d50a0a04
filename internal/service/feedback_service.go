package service

import (
	"time"

	"confighub/logger"
)

// Retractor removes a previously delivered post from a channel.
type Retractor interface {
	Retract(channelId string, messageId int) error
}

// FeedbackService applies reader feedback: copy confirmations and bad
// reports, retracting a config once its confirmed reports reach the
// threshold.
type FeedbackService struct {
	ConfigService *ConfigService
	StatService   *StatService

	// Threshold is the bad-report count at which the config is removed.
	Threshold uint

	// Retractor deletes the channel post on retraction. Optional; when nil
	// the database row is still removed.
	Retractor Retractor
}

// ReportBad records one confirmed bad report against the fingerprint and
// returns the new count plus whether the config was retracted. Retraction
// deletes the database row unconditionally; removing the channel post is
// best effort.
func (s *FeedbackService) ReportBad(fingerprint string, now time.Time) (uint, bool, error) {
	rec, err := s.ConfigService.GetByFingerprint(fingerprint)
	if err != nil {
		return 0, false, err
	}

	count, err := s.ConfigService.IncrementBadReport(fingerprint)
	if err != nil {
		return 0, false, err
	}
	if err := s.StatService.IncrementBadReport(now); err != nil {
		logger.Warningf("daily bad-report stat: %v", err)
	}

	if count < s.Threshold {
		return count, false, nil
	}

	if s.Retractor != nil && rec.MessageId != nil && rec.ChannelId != "" {
		if err := s.Retractor.Retract(rec.ChannelId, *rec.MessageId); err != nil {
			logger.Warningf("retract post %d in %s: %v", *rec.MessageId, rec.ChannelId, err)
		}
	}
	if err := s.ConfigService.Delete(fingerprint); err != nil {
		return count, false, err
	}
	logger.Infof("config %s retracted after %d bad reports", fingerprint, count)
	return count, true, nil
}

// ReportCopy records that a reader copied the config.
func (s *FeedbackService) ReportCopy(fingerprint string, now time.Time) error {
	if err := s.ConfigService.IncrementCopyCount(fingerprint); err != nil {
		return err
	}
	return s.StatService.IncrementCopy(now)
}
