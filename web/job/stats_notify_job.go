package job

import (
	"time"

	"confighub/internal/service"
	"confighub/internal/telegram"
	"confighub/logger"
)

// StatsNotifyJob broadcasts the daily stats to every channel. It is gated
// by the reminder_enabled setting so the admin can silence it.
type StatsNotifyJob struct {
	statService    *service.StatService
	settingService *service.SettingService
	channelService *service.ChannelService
	courier        *telegram.Courier
}

func NewStatsNotifyJob(
	statService *service.StatService,
	settingService *service.SettingService,
	channelService *service.ChannelService,
	courier *telegram.Courier,
) *StatsNotifyJob {
	return &StatsNotifyJob{
		statService:    statService,
		settingService: settingService,
		channelService: channelService,
		courier:        courier,
	}
}

func (j *StatsNotifyJob) Run() {
	if !j.settingService.IsReminderEnabled() {
		return
	}

	stat, histogram, err := j.statService.GetDaily(time.Now())
	if err != nil {
		logger.Warningf("stats notify: %v", err)
		return
	}
	if stat.Count == 0 {
		return
	}

	channels, err := j.channelService.ListIds()
	if err != nil {
		logger.Warningf("stats notify: %v", err)
		return
	}
	j.courier.Broadcast(channels, telegram.DailyStats(stat, histogram))
}
