// Package sysmetrics reads host and process usage from /proc.
package sysmetrics

import (
	"fmt"
	"sync"
	"time"

	"progress_notifier/internal/app"

	"github.com/prometheus/procfs"
)

const bytesPerMB = 1 << 20

type cpuReading struct {
	busy  float64
	total float64
}

type procReading struct {
	cpuSeconds float64
	at         time.Time
}

// ProcfsSampler implements app.MachineSampler on top of a procfs mount.
// CPU percentages are deltas against the previous call, so the first
// machine reading covers the time since boot and the first process reading is 0.
type ProcfsSampler struct {
	fs  procfs.FS
	now func() time.Time

	mu       sync.Mutex
	lastCPU  *cpuReading
	lastProc map[int]procReading
}

// NewProcfsSampler opens the default /proc mount.
func NewProcfsSampler() (*ProcfsSampler, error) {
	return NewProcfsSamplerAt(procfs.DefaultMountPoint)
}

// NewProcfsSamplerAt opens a procfs mounted at mountPoint.
func NewProcfsSamplerAt(mountPoint string) (*ProcfsSampler, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs at %s: %w", mountPoint, err)
	}
	return &ProcfsSampler{fs: fs, now: time.Now, lastProc: make(map[int]procReading)}, nil
}

func (s *ProcfsSampler) SampleMachine() (app.MachineStats, error) {
	stat, err := s.fs.Stat()
	if err != nil {
		return app.MachineStats{}, fmt.Errorf("failed to read cpu stat: %w", err)
	}
	mem, err := s.fs.Meminfo()
	if err != nil {
		return app.MachineStats{}, fmt.Errorf("failed to read meminfo: %w", err)
	}
	procs, err := s.fs.AllProcs()
	if err != nil {
		return app.MachineStats{}, fmt.Errorf("failed to list processes: %w", err)
	}

	c := stat.CPUTotal
	idle := c.Idle + c.Iowait
	current := cpuReading{
		busy:  c.User + c.Nice + c.System + c.IRQ + c.SoftIRQ + c.Steal,
		total: c.User + c.Nice + c.System + c.IRQ + c.SoftIRQ + c.Steal + idle,
	}

	s.mu.Lock()
	prev := s.lastCPU
	s.lastCPU = &current
	s.mu.Unlock()

	busy, total := current.busy, current.total
	if prev != nil {
		busy, total = current.busy-prev.busy, current.total-prev.total
	}

	stats := app.MachineStats{Processes: len(procs)}
	if total > 0 {
		stats.CPUPercent = 100 * busy / total
	}

	memTotal, available := kb(mem.MemTotal), kb(mem.MemAvailable)
	if mem.MemAvailable == nil {
		// Kernels before 3.14 do not report MemAvailable.
		available = kb(mem.MemFree) + kb(mem.Buffers) + kb(mem.Cached)
	}
	stats.FreeMemoryMB = available / bytesPerMB
	stats.UsedMemoryMB = (memTotal - available) / bytesPerMB
	return stats, nil
}

func (s *ProcfsSampler) SampleProcess(pid int) (app.ProcessStats, error) {
	proc, err := s.fs.Proc(pid)
	if err != nil {
		return app.ProcessStats{}, fmt.Errorf("process %d not found: %w", pid, err)
	}
	stat, err := proc.Stat()
	if err != nil {
		return app.ProcessStats{}, fmt.Errorf("failed to read stat of process %d: %w", pid, err)
	}

	current := procReading{cpuSeconds: stat.CPUTime(), at: s.now()}
	s.mu.Lock()
	prev, seen := s.lastProc[pid]
	s.lastProc[pid] = current
	s.mu.Unlock()

	stats := app.ProcessStats{VirtualMemoryMB: float64(stat.VirtualMemory()) / bytesPerMB}
	if seen {
		if wall := current.at.Sub(prev.at).Seconds(); wall > 0 {
			stats.CPUPercent = 100 * (current.cpuSeconds - prev.cpuSeconds) / wall
		}
	}
	return stats, nil
}

// kb converts an optional meminfo value in kB to bytes.
func kb(v *uint64) float64 {
	if v == nil {
		return 0
	}
	return float64(*v) * 1024
}

// UnavailableSampler stands in when /proc cannot be opened; every reading fails with Err.
type UnavailableSampler struct {
	Err error
}

func (u UnavailableSampler) SampleMachine() (app.MachineStats, error) {
	return app.MachineStats{}, u.Err
}

func (u UnavailableSampler) SampleProcess(int) (app.ProcessStats, error) {
	return app.ProcessStats{}, u.Err
}
