package service

import (
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostStatus is a point-in-time snapshot of the machine running the bot,
// shown in the admin status view.
type HostStatus struct {
	CPUPercent float64 `json:"cpuPercent"`
	MemUsed    uint64  `json:"memUsed"`
	MemTotal   uint64  `json:"memTotal"`
	Uptime     uint64  `json:"uptime"`
}

type ServerStatService struct{}

func (s *ServerStatService) Status() *HostStatus {
	status := &HostStatus{}

	if percents, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(percents) > 0 {
		status.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status.MemUsed = vm.Used
		status.MemTotal = vm.Total
	}
	if uptime, err := host.Uptime(); err == nil {
		status.Uptime = uptime
	}

	return status
}
