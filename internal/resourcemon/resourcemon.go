// Package resourcemon samples CPU and memory pressure once per batch for
// operational logging. Observability only: nothing here throttles the
// engine's fixed MaxParallel* worker caps. Grounded on the teacher's
// internal/rslimiter.ResourceUsage/GetResourceUsage, trimmed to the fields
// worth logging and stripped of the limiting/throttling behaviour that
// package also implements (out of scope here, see the engine's fixed
// concurrency caps).
package resourcemon

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/rs/zerolog"
)

// Snapshot is one point-in-time resource reading.
type Snapshot struct {
	AllocMB              int64
	Goroutines           int
	SystemMemUsedPercent float64
	CPUUsagePercent      float64
}

// Sampler takes Snapshots and logs them.
type Sampler struct {
	logger           zerolog.Logger
	cpuSampleWindow  time.Duration
}

// New builds a Sampler. cpuSampleWindow controls how long cpu.Percent
// blocks to measure a CPU usage delta; 100ms matches the teacher's default.
func New(logger zerolog.Logger, cpuSampleWindow time.Duration) *Sampler {
	if cpuSampleWindow <= 0 {
		cpuSampleWindow = 100 * time.Millisecond
	}
	return &Sampler{
		logger:          logger.With().Str("component", "ResourceSampler").Logger(),
		cpuSampleWindow: cpuSampleWindow,
	}
}

// Sample reads current resource usage.
func (s *Sampler) Sample() Snapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	snapshot := Snapshot{
		AllocMB:    int64(m.Alloc / 1024 / 1024),
		Goroutines: runtime.NumGoroutine(),
	}

	if vmStat, err := mem.VirtualMemory(); err == nil {
		snapshot.SystemMemUsedPercent = vmStat.UsedPercent
	}
	if cpuPercents, err := cpu.Percent(s.cpuSampleWindow, false); err == nil && len(cpuPercents) > 0 {
		snapshot.CPUUsagePercent = cpuPercents[0]
	}
	return snapshot
}

// LogBatchUsage samples and logs resource usage at the end of a batch.
func (s *Sampler) LogBatchUsage(runID string) {
	snapshot := s.Sample()
	s.logger.Info().
		Str("run_id", runID).
		Int64("alloc_mb", snapshot.AllocMB).
		Int("goroutines", snapshot.Goroutines).
		Float64("system_mem_used_percent", snapshot.SystemMemUsedPercent).
		Float64("cpu_usage_percent", snapshot.CPUUsagePercent).
		Msg("batch resource usage")
}
