// Package resource samples host CPU, memory and network counters while a run
// is in progress.
package resource

import "time"

// Sample is one timestamped snapshot of host resource counters.
type Sample struct {
	Timestamp     time.Time `json:"timestamp"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsedMB  float64   `json:"memory_used"`
	NetworkSent   uint64    `json:"network_sent"`
	NetworkRecv   uint64    `json:"network_recv"`
}

// Summary aggregates every sample taken so far. Memory figures are memory
// used in MB.
type Summary struct {
	MaxCPU    float64 `json:"max_cpu"`
	AvgCPU    float64 `json:"avg_cpu"`
	MaxMemory float64 `json:"max_memory"`
	AvgMemory float64 `json:"avg_memory"`
}

// accumulator maintains a Summary incrementally: running max and running
// mean, O(1) per sample.
type accumulator struct {
	count   int
	summary Summary
}

func (a *accumulator) add(s Sample) {
	a.count++
	n := float64(a.count)

	if a.count == 1 || s.CPUPercent > a.summary.MaxCPU {
		a.summary.MaxCPU = s.CPUPercent
	}
	if a.count == 1 || s.MemoryUsedMB > a.summary.MaxMemory {
		a.summary.MaxMemory = s.MemoryUsedMB
	}

	a.summary.AvgCPU += (s.CPUPercent - a.summary.AvgCPU) / n
	a.summary.AvgMemory += (s.MemoryUsedMB - a.summary.AvgMemory) / n
}

// Summarize computes the Summary of samples in one pass.
func Summarize(samples []Sample) Summary {
	var acc accumulator
	for _, s := range samples {
		acc.add(s)
	}
	return acc.summary
}
