// Package job holds the cron jobs scheduled by the web server.
package job

import (
	"confighub/internal/dispatch"
	"confighub/logger"
)

// DrainJob periodically drains the pending queue.
type DrainJob struct {
	dispatcher *dispatch.Dispatcher
}

func NewDrainJob(dispatcher *dispatch.Dispatcher) *DrainJob {
	return &DrainJob{dispatcher: dispatcher}
}

func (j *DrainJob) Run() {
	result, err := j.dispatcher.Drain("cron", 0)
	if err == dispatch.ErrDrainActive {
		logger.Debug("drain job skipped, previous run still active")
		return
	}
	if err == dispatch.ErrNoChannels {
		logger.Debug("drain job skipped, no channels registered")
		return
	}
	if err != nil {
		logger.Warningf("drain job: %v", err)
		return
	}
	if result.Delivered > 0 || result.Failed > 0 {
		logger.Infof("drain job: delivered %d, failed %d, remaining %d",
			result.Delivered, result.Failed, result.Remaining)
	}
}
