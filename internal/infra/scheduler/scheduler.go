package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Ticker is a job run on every profiler tick.
type Ticker interface {
	Tick(ctx context.Context) string
}

// ProfilerScheduler runs the profiler on a fixed interval.
type ProfilerScheduler struct {
	cronEngine *cron.Cron
	profiler   Ticker
	logger     *logrus.Entry
	interval   time.Duration
}

// NewProfilerScheduler builds a scheduler for a positive interval. Ticks that
// would overlap a still running one are skipped.
func NewProfilerScheduler(profiler Ticker, interval time.Duration, logger *logrus.Entry) (*ProfilerScheduler, error) {
	if interval < time.Second {
		return nil, fmt.Errorf("profiler interval must be at least one second, got %s", interval)
	}
	cronLogger := cron.PrintfLogger(logger)
	return &ProfilerScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local), // Use server's local time for cron
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		profiler:   profiler,
		logger:     logger,
		interval:   interval,
	}, nil
}

// Spec returns the cron schedule used for the interval.
func (s *ProfilerScheduler) Spec() string {
	return fmt.Sprintf("@every %s", s.interval)
}

func (s *ProfilerScheduler) Start() error {
	s.logger.WithField("interval", s.interval).Info("Starting profiler scheduler")

	_, err := s.cronEngine.AddFunc(s.Spec(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		defer cancel()
		s.profiler.Tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("could not add profiler cron job: %w", err)
	}

	s.cronEngine.Start()
	return nil
}

func (s *ProfilerScheduler) Stop() {
	s.logger.Info("Stopping profiler scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Profiler scheduler gracefully stopped.")
}
