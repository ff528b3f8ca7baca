package httpserver

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemStats is the host and process summary included in /health.
type SystemStats struct {
	Hostname      string  `json:"hostname,omitempty"`
	HostUptime    uint64  `json:"host_uptime_seconds,omitempty"`
	MemoryUsedPct float64 `json:"memory_used_percent,omitempty"`
	ProcessRSS    uint64  `json:"process_rss_bytes,omitempty"`
	ProcessCPUPct float64 `json:"process_cpu_percent,omitempty"`
	Goroutines    int     `json:"goroutines"`
}

// collectSystemStats gathers what gopsutil can report on this platform.
// Fields it cannot read are left empty.
func collectSystemStats() SystemStats {
	stats := SystemStats{Goroutines: runtime.NumGoroutine()}

	if info, err := host.Info(); err == nil {
		stats.Hostname = info.Hostname
		stats.HostUptime = info.Uptime
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryUsedPct = vm.UsedPercent
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := proc.MemoryInfo(); err == nil {
			stats.ProcessRSS = mi.RSS
		}
		if pct, err := proc.CPUPercent(); err == nil {
			stats.ProcessCPUPct = pct
		}
	}
	return stats
}
