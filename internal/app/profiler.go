package app

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"progress_notifier/internal/domain/session"

	"github.com/sirupsen/logrus"
)

const (
	unknownField = "unknown"
	noneField    = "None"
	dbTimeout    = 5 * time.Second
)

// MachineStats is a host-wide resource reading.
type MachineStats struct {
	CPUPercent   float64
	UsedMemoryMB float64
	FreeMemoryMB float64
	Processes    int
}

// ProcessStats is a resource reading for a single process.
type ProcessStats struct {
	CPUPercent      float64
	VirtualMemoryMB float64
}

// MachineSampler reads host and process resources.
type MachineSampler interface {
	SampleMachine() (MachineStats, error)
	SampleProcess(pid int) (ProcessStats, error)
}

// SampleObserver receives every collected sample, e.g. to export it as metrics.
type SampleObserver interface {
	ObserveSample(s Sample)
}

// Sample is one profiler reading. Nil fields could not be collected.
type Sample struct {
	ActiveSessions    *int
	ActiveUsers       *int // Logged users active in the last 10 minutes
	ActiveUsersMinute *int // Logged users active in the last minute
	Machine           *MachineStats
	Server            *ProcessStats
}

func intField(v *int) string {
	if v == nil {
		return unknownField
	}
	return strconv.Itoa(*v)
}

func floatField(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// Fields returns the nine CSV columns of the sample in log order.
func (s Sample) Fields() []string {
	fields := []string{intField(s.ActiveSessions), intField(s.ActiveUsers), intField(s.ActiveUsersMinute)}
	if s.Machine != nil {
		fields = append(fields,
			floatField(s.Machine.CPUPercent, 1),
			floatField(s.Machine.UsedMemoryMB, 2),
			floatField(s.Machine.FreeMemoryMB, 2),
			strconv.Itoa(s.Machine.Processes))
	} else {
		fields = append(fields, unknownField, unknownField, unknownField, unknownField)
	}
	if s.Server != nil {
		fields = append(fields, floatField(s.Server.CPUPercent, 1), floatField(s.Server.VirtualMemoryMB, 2))
	} else {
		fields = append(fields, noneField, noneField)
	}
	return fields
}

// String joins the fields with commas.
func (s Sample) String() string {
	return strings.Join(s.Fields(), ",")
}

// Profiler logs performance information about the host and the running server.
type Profiler struct {
	sessions session.Repository // nil when no database is configured
	sampler  MachineSampler
	pidFile  string
	logger   *logrus.Entry
	observer SampleObserver
	now      func() time.Time
}

func NewProfiler(sessions session.Repository, sampler MachineSampler, pidFile string, logger *logrus.Entry, observer SampleObserver) *Profiler {
	return &Profiler{
		sessions: sessions,
		sampler:  sampler,
		pidFile:  pidFile,
		logger:   logger,
		observer: observer,
		now:      time.Now,
	}
}

// Tick collects one sample, logs it and hands it to the observer.
func (p *Profiler) Tick(ctx context.Context) string {
	sample := p.Collect(ctx)
	line := sample.String()
	p.logger.Info(line)
	if p.observer != nil {
		p.observer.ObserveSample(sample)
	}
	return line
}

// Collect gathers a sample. It never fails: anything unavailable is left nil.
func (p *Profiler) Collect(ctx context.Context) Sample {
	var s Sample
	p.collectUsers(ctx, &s)

	if machine, err := p.sampler.SampleMachine(); err != nil {
		p.logger.WithError(err).Warn("Machine usage information unavailable")
	} else {
		s.Machine = &machine
	}

	// Missing or corrupt PID file, or a server that is not running, only
	// leaves the process columns empty.
	if pid, ok := readPID(p.pidFile); ok {
		if proc, err := p.sampler.SampleProcess(pid); err == nil {
			s.Server = &proc
		}
	}
	return s
}

func (p *Profiler) collectUsers(ctx context.Context, s *Sample) {
	if p.sessions == nil {
		p.logger.Error("Database unavailable, impossible to retrieve users and sessions info")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	now := p.now()
	var sessions, users, usersMinute int
	err := p.sessions.Ping(ctx)
	if err == nil {
		sessions, err = p.sessions.CountActiveSessions(ctx, now)
	}
	if err == nil {
		users, err = p.sessions.CountActiveUsers(ctx, now.Add(-10*time.Minute))
	}
	if err == nil {
		usersMinute, err = p.sessions.CountActiveUsers(ctx, now.Add(-time.Minute))
	}
	if err != nil {
		p.logger.WithError(err).Error("Database unavailable, impossible to retrieve users and sessions info")
		return
	}
	s.ActiveSessions, s.ActiveUsers, s.ActiveUsersMinute = &sessions, &users, &usersMinute
}

// readPID reads the server PID from the first line of the PID file.
func readPID(path string) (int, bool) {
	if path == "" {
		return 0, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	firstLine, _, _ := strings.Cut(string(data), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(firstLine))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
