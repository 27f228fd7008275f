package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"progress_notifier/internal/app"
	"progress_notifier/internal/domain/session"
	"progress_notifier/internal/infra/config"
	idb "progress_notifier/internal/infra/database"
	"progress_notifier/internal/infra/logger"
	"progress_notifier/internal/infra/metrics"
	"progress_notifier/internal/infra/scheduler"
	"progress_notifier/internal/infra/sysmetrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var profileOpts struct {
	interval    int
	pidFile     string
	metricsAddr string
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Logs performance/profiling info of the server running the platform",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(false)
		if err != nil {
			return err
		}
		logger.Init(cfg)
		if profileOpts.pidFile != "" {
			cfg.PIDFile = profileOpts.pidFile
		}
		return runProfile(cmd.Context(), cfg, profileOpts.interval, profileOpts.metricsAddr)
	},
}

func init() {
	profileCmd.Flags().IntVar(&profileOpts.interval, "interval", 0,
		"Interval (in seconds) to run the process continuously. If 0, no repetition will happen")
	profileCmd.Flags().StringVar(&profileOpts.pidFile, "pid-file", "", "Server PID file (overrides NOTIFIER_PID_FILE)")
	profileCmd.Flags().StringVar(&profileOpts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while looping")
	rootCmd.AddCommand(profileCmd)
}

// newProfiler wires the profiler to the database and procfs. A non-nil db is
// reused and left open; otherwise a pool is opened when DATABASE_URL is set
// and the returned closer releases it.
func newProfiler(cfg *config.AppConfig, db *sql.DB, observer app.SampleObserver) (*app.Profiler, func(), error) {
	profLogger := logger.Named("profiler")

	var sessions session.Repository
	closer := func() {}
	if db == nil && cfg.DatabaseURL != "" {
		opened, err := idb.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		db = opened
		closer = func() { opened.Close() }
	}
	if db != nil {
		sessions = idb.NewPostgresSessionRepository(db)
	}

	var sampler app.MachineSampler
	procSampler, err := sysmetrics.NewProcfsSampler()
	if err != nil {
		profLogger.WithError(err).Warn("procfs unavailable, machine usage will be reported as unknown")
		sampler = sysmetrics.UnavailableSampler{Err: err}
	} else {
		sampler = procSampler
	}
	return app.NewProfiler(sessions, sampler, cfg.PIDFile, profLogger, observer), closer, nil
}

func runProfile(ctx context.Context, cfg *config.AppConfig, interval int, metricsAddr string) error {
	if interval < 0 {
		return errors.New("--interval must not be negative")
	}

	var observer app.SampleObserver
	var registry *prometheus.Registry
	if metricsAddr != "" && interval > 0 {
		registry = prometheus.NewRegistry()
		observer = metrics.New(registry)
	}

	profiler, closeDB, err := newProfiler(cfg, nil, observer)
	if err != nil {
		return err
	}
	defer closeDB()

	profiler.Tick(ctx)
	if interval == 0 {
		return nil
	}

	sched, err := scheduler.NewProfilerScheduler(profiler, time.Duration(interval)*time.Second, logger.Named("scheduler"))
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}

	var metricsServer *http.Server
	if registry != nil {
		router := mux.NewRouter()
		router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")
		metricsServer = &http.Server{Addr: metricsAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.WithError(err).Error("Metrics server stopped")
			}
		}()
		logger.Log.WithField("addr", metricsAddr).Info("Serving profiler metrics")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	sched.Stop()
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithFields(logrus.Fields{"addr": metricsAddr}).WithError(err).Warn("Metrics server shutdown failed")
		}
	}
	return nil
}
