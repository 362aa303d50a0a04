package job

import (
	"confighub/internal/service"
	"confighub/logger"
)

// CleanupJob purges stale configs and sweeps fingerprint duplicates left
// behind by data imported before the unique index existed.
type CleanupJob struct {
	configService *service.ConfigService
	days          int
}

func NewCleanupJob(configService *service.ConfigService, days int) *CleanupJob {
	return &CleanupJob{configService: configService, days: days}
}

func (j *CleanupJob) Run() {
	removed, err := j.configService.CleanupOlderThan(j.days)
	if err != nil {
		logger.Warningf("cleanup: %v", err)
	} else if removed > 0 {
		logger.Infof("cleanup: removed %d configs older than %d days", removed, j.days)
	}

	collapsed, err := j.configService.CollapseDuplicates()
	if err != nil {
		logger.Warningf("duplicate sweep: %v", err)
	} else if collapsed > 0 {
		logger.Infof("duplicate sweep: removed %d rows", collapsed)
	}
}
