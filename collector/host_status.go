package collector

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStatus is one resource sample of the machine the controller runs on
type HostStatus struct {
	Hostname      string    `json:"hostname"`
	Uptime        uint64    `json:"uptime"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	Load1         float64   `json:"load1"`
	CollectedAt   time.Time `json:"collected_at"`
}

// CollectHostStatus samples cpu, memory, load and uptime; any failure aborts the sample
func CollectHostStatus() (HostStatus, error) {
	status := HostStatus{CollectedAt: time.Now()}

	usage, err := cpu.Percent(0, false)
	if err != nil {
		return HostStatus{}, fmt.Errorf("failed to sample cpu usage: %w", err)
	}
	if len(usage) > 0 {
		status.CPUPercent = usage[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return HostStatus{}, fmt.Errorf("failed to sample memory: %w", err)
	}
	status.MemoryPercent = vm.UsedPercent

	avg, err := load.Avg()
	if err != nil {
		return HostStatus{}, fmt.Errorf("failed to sample load: %w", err)
	}
	status.Load1 = avg.Load1

	info, err := host.Info()
	if err != nil {
		return HostStatus{}, fmt.Errorf("failed to read host info: %w", err)
	}
	status.Hostname = info.Hostname
	status.Uptime = info.Uptime

	return status, nil
}
