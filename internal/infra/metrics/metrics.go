// Package metrics exports profiler samples and notification counts to Prometheus.
package metrics

import (
	"context"

	"progress_notifier/internal/app"
	"progress_notifier/internal/domain/notification"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of the service. It implements both
// app.SampleObserver and app.Observer.
type Metrics struct {
	activeSessions    prometheus.Gauge
	activeUsers       *prometheus.GaugeVec
	cpuPercent        prometheus.Gauge
	memoryMB          *prometheus.GaugeVec
	processes         prometheus.Gauge
	serverCPUPercent  prometheus.Gauge
	serverVirtualMB   prometheus.Gauge
	notificationsMade *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "notifier", Subsystem: "profiler", Name: "active_sessions",
			Help: "Sessions not yet expired, guest sessions included.",
		}),
		activeUsers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "notifier", Subsystem: "profiler", Name: "active_users",
			Help: "Logged users with an interaction inside the window.",
		}, []string{"window"}),
		cpuPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "notifier", Subsystem: "profiler", Name: "cpu_percent",
			Help: "Host CPU usage since the previous sample.",
		}),
		memoryMB: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "notifier", Subsystem: "profiler", Name: "memory_megabytes",
			Help: "Host memory in megabytes.",
		}, []string{"state"}),
		processes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "notifier", Subsystem: "profiler", Name: "processes",
			Help: "Number of processes on the host.",
		}),
		serverCPUPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "notifier", Subsystem: "profiler", Name: "server_cpu_percent",
			Help: "CPU usage of the server process since the previous sample.",
		}),
		serverVirtualMB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "notifier", Subsystem: "profiler", Name: "server_virtual_memory_megabytes",
			Help: "Virtual memory size of the server process.",
		}),
		notificationsMade: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifier", Name: "notifications_created_total",
			Help: "Learner progress notifications inserted, by object and event.",
		}, []string{"object", "event"}),
	}
	reg.MustRegister(
		m.activeSessions, m.activeUsers, m.cpuPercent, m.memoryMB,
		m.processes, m.serverCPUPercent, m.serverVirtualMB, m.notificationsMade,
	)
	return m
}

// ObserveSample updates the gauges. Fields missing from the sample keep
// their previous value.
func (m *Metrics) ObserveSample(s app.Sample) {
	if s.ActiveSessions != nil {
		m.activeSessions.Set(float64(*s.ActiveSessions))
	}
	if s.ActiveUsers != nil {
		m.activeUsers.WithLabelValues("10m").Set(float64(*s.ActiveUsers))
	}
	if s.ActiveUsersMinute != nil {
		m.activeUsers.WithLabelValues("1m").Set(float64(*s.ActiveUsersMinute))
	}
	if s.Machine != nil {
		m.cpuPercent.Set(s.Machine.CPUPercent)
		m.memoryMB.WithLabelValues("used").Set(s.Machine.UsedMemoryMB)
		m.memoryMB.WithLabelValues("free").Set(s.Machine.FreeMemoryMB)
		m.processes.Set(float64(s.Machine.Processes))
	}
	if s.Server != nil {
		m.serverCPUPercent.Set(s.Server.CPUPercent)
		m.serverVirtualMB.Set(s.Server.VirtualMemoryMB)
	}
}

// Observe counts inserted notifications.
func (m *Metrics) Observe(_ context.Context, created []*notification.LearnerProgressNotification) {
	for _, n := range created {
		m.notificationsMade.WithLabelValues(string(n.Object), string(n.Event)).Inc()
	}
}
