package resource

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
)

const bytesPerMB = 1024 * 1024

// Probe captures one resource sample.
type Probe interface {
	Sample(ctx context.Context) (Sample, error)
}

// HostProbe reads host-wide counters through gopsutil.
//
// CPU percent is measured since the previous call (non-blocking), so the
// first sample of a process reflects usage since package initialization.
type HostProbe struct{}

// NewHostProbe returns a probe for the local host.
func NewHostProbe() *HostProbe {
	return &HostProbe{}
}

// Sample implements Probe.
func (p *HostProbe) Sample(ctx context.Context) (Sample, error) {
	cpuPercent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read cpu usage: %w", err)
	}
	if len(cpuPercent) == 0 {
		return Sample{}, fmt.Errorf("failed to read cpu usage: no data")
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read memory usage: %w", err)
	}

	counters, err := psnet.IOCountersWithContext(ctx, false)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read network counters: %w", err)
	}

	var sent, recv uint64
	for _, c := range counters {
		sent += c.BytesSent
		recv += c.BytesRecv
	}

	return Sample{
		Timestamp:     time.Now(),
		CPUPercent:    cpuPercent[0],
		MemoryPercent: vm.UsedPercent,
		MemoryUsedMB:  float64(vm.Used) / bytesPerMB,
		NetworkSent:   sent,
		NetworkRecv:   recv,
	}, nil
}

var _ Probe = (*HostProbe)(nil)
