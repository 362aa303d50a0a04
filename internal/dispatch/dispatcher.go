// Package dispatch drains pending configs to the destination channels in
// shuffled, throttled batches.
package dispatch

import (
	"math/rand"
	"time"

	"confighub/database/model"
	"confighub/internal/service"
	"confighub/logger"
	"confighub/util/common"

	"go.uber.org/atomic"
)

// Courier delivers a config record to one channel and can take a posted
// message down again.
type Courier interface {
	Deliver(channelId string, rec *model.ConfigRecord) (messageId int, err error)
	Retract(channelId string, messageId int) error
}

// Reason tells why a drain run stopped.
type Reason string

const (
	// ReasonCompleted means every fetched pending config was attempted.
	ReasonCompleted Reason = "completed"
	// ReasonStopped means the stop_sending kill switch was flipped.
	ReasonStopped Reason = "stopped"
	// ReasonLimit means the daily delivery limit was reached.
	ReasonLimit Reason = "limit"
)

// DrainResult summarizes one drain run.
type DrainResult struct {
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
	Remaining int    `json:"remaining"`
	Reason    Reason `json:"reason"`
}

// ErrDrainActive is returned when a drain is requested while another run
// is still in flight.
var ErrDrainActive = common.NewError("a drain is already in progress")

// ErrNoChannels is returned when the channel registry is empty.
var ErrNoChannels = common.NewError("no destination channels registered")

// Dispatcher owns the drain loop. At most one drain runs at a time; the
// periodic job and the manual trigger share the same guard.
type Dispatcher struct {
	ConfigService  *service.ConfigService
	SettingService *service.SettingService
	StatService    *service.StatService
	ChannelService *service.ChannelService
	Courier        Courier

	running atomic.Bool

	// Injection points for deterministic tests.
	sleep   func(time.Duration)
	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

func NewDispatcher(
	configService *service.ConfigService,
	settingService *service.SettingService,
	statService *service.StatService,
	channelService *service.ChannelService,
	courier Courier,
) *Dispatcher {
	return &Dispatcher{
		ConfigService:  configService,
		SettingService: settingService,
		StatService:    statService,
		ChannelService: channelService,
		Courier:        courier,
		sleep:          time.Sleep,
		now:            time.Now,
		shuffle:        rand.Shuffle,
	}
}

// Running reports whether a drain is currently in flight.
func (d *Dispatcher) Running() bool {
	return d.running.Load()
}

// Drain sends pending configs in shuffled batches until the backlog is
// empty, the daily limit is reached or the kill switch flips. A positive
// limit caps how many records this run fetches; zero means all pending.
// Remaining counts the undelivered records of the fetched set. The
// trigger string only labels the log lines.
func (d *Dispatcher) Drain(trigger string, limit int) (*DrainResult, error) {
	if !d.running.CompareAndSwap(false, true) {
		return nil, ErrDrainActive
	}
	defer d.running.Store(false)

	if d.SettingService.IsStopSending() {
		remaining, err := d.ConfigService.CountPending()
		if err != nil {
			return nil, err
		}
		return &DrainResult{Remaining: int(remaining), Reason: ReasonStopped}, nil
	}

	channels, err := d.ChannelService.ListIds()
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, ErrNoChannels
	}

	dailyLimit := d.SettingService.GetDailyLimit()
	// The quota reads the daily stat counter, not surviving rows: a
	// retraction must not free a slot for the same date.
	sentToday, err := d.StatService.SentToday(d.now())
	if err != nil {
		return nil, err
	}

	pending, err := d.ConfigService.ListPending(limit)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return &DrainResult{Reason: ReasonCompleted}, nil
	}

	d.shuffle(len(pending), func(i, j int) {
		pending[i], pending[j] = pending[j], pending[i]
	})

	batchSize := d.SettingService.GetBatchSize()
	interval := time.Duration(d.SettingService.GetInterval()) * time.Second
	delay := time.Duration(d.SettingService.GetDelay()) * time.Second

	logger.Infof("drain (%s): %d pending, %d channel(s), batch %d, %d/%d sent today",
		trigger, len(pending), len(channels), batchSize, sentToday, dailyLimit)

	result := &DrainResult{Reason: ReasonCompleted}

loop:
	for batchStart := 0; batchStart < len(pending); batchStart += batchSize {
		if batchStart > 0 {
			d.sleep(interval)
		}

		batchEnd := min(batchStart+batchSize, len(pending))
		for i, rec := range pending[batchStart:batchEnd] {
			// Both throttles are re-read per record so an admin change
			// takes effect mid-run.
			if d.SettingService.IsStopSending() {
				result.Reason = ReasonStopped
				break loop
			}
			if sentToday+result.Delivered >= d.SettingService.GetDailyLimit() {
				result.Reason = ReasonLimit
				break loop
			}

			if i > 0 && delay > 0 {
				d.sleep(delay)
			}
			if d.deliverToChannels(channels, rec) {
				result.Delivered++
			} else {
				result.Failed++
			}
		}
	}

	result.Remaining = len(pending) - result.Delivered
	logger.Infof("drain (%s) finished: delivered %d, failed %d, remaining %d, reason %s",
		trigger, result.Delivered, result.Failed, result.Remaining, result.Reason)
	return result, nil
}

// deliverToChannels posts the record to every destination and records the
// first successful delivery as the retraction coordinates. A record is
// counted delivered when at least one channel accepted it; failed records
// stay pending for the next run.
func (d *Dispatcher) deliverToChannels(channels []string, rec *model.ConfigRecord) bool {
	delivered := false
	var failures []error
	for _, channelId := range channels {
		messageId, err := d.Courier.Deliver(channelId, rec)
		if err != nil {
			failures = append(failures, common.NewErrorf("%s: %v", channelId, err))
			continue
		}
		if !delivered {
			delivered = true
			now := d.now()
			if err := d.ConfigService.MarkSent(rec.Fingerprint, channelId, messageId, now); err != nil {
				logger.Errorf("mark %s sent: %v", rec.Fingerprint, err)
			}
			if err := d.StatService.IncrementDaily(rec.Location, now); err != nil {
				logger.Warningf("daily stat for %s: %v", rec.Fingerprint, err)
			}
		}
	}
	if len(failures) > 0 {
		logger.Warningf("deliver %s: %v", rec.Fingerprint, common.Combine(failures...))
	}
	return delivered
}
