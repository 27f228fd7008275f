package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"progress_notifier/internal/app"
	"progress_notifier/internal/infra/config"
	idb "progress_notifier/internal/infra/database"
	"progress_notifier/internal/infra/httpapi"
	"progress_notifier/internal/infra/logger"
	"progress_notifier/internal/infra/metrics"
	"progress_notifier/internal/infra/scheduler"
	"progress_notifier/internal/infra/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the progress hook API, metrics and the optional coach bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(true)
		if err != nil {
			return err
		}
		logger.Init(cfg)
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, cfg *config.AppConfig) error {
	mainLogger := logger.Named("main")
	mainLogger.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Configuration loaded")

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := idb.EnsureSchema(ctx, db); err != nil {
		return err
	}
	mainLogger.Info("Database connection established successfully.")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	notifRepo := idb.NewPostgresNotificationRepository(db)
	repos := app.Repositories{
		Notifications: notifRepo,
		Lessons:       idb.NewPostgresLessonRepository(db),
		Exams:         idb.NewPostgresExamRepository(db),
		Memberships:   idb.NewPostgresMembershipRepository(db),
		Content:       idb.NewPostgresContentRepository(db),
		Progress:      idb.NewPostgresProgressRepository(db),
	}

	observers := []app.Observer{appMetrics}

	// Initialize Telegram Bot
	var bot *telebot.Bot
	var relay *app.CoachRelay
	if cfg.CoachRelayEnabled() {
		botLogger := logger.Named("telegram")
		bot, err = telegram.NewBot(cfg.TelegramToken, func(err error, c telebot.Context) {
			entry := botLogger.WithError(err)
			if c != nil && c.Chat() != nil {
				entry = entry.WithField("chat_id", c.Chat().ID)
			}
			entry.Error("Telegram handler failed")
		})
		if err != nil {
			return err
		}
		telegram.RegisterCoachHandlers(ctx, bot, notifRepo, cfg.CoachTelegramID, botLogger)
		relay = app.NewCoachRelay(telegram.NewTelebotAdapter(bot), cfg.CoachTelegramID, app.DefaultRelayQueueSize, botLogger)
		relay.Start()
		observers = append(observers, relay)
		go bot.Start()
		mainLogger.Info("Coach relay enabled.")
	}

	engine := app.NewNotificationEngine(repos, cfg.CacheSize, cfg.CacheTTL, logger.Named("notifications"), observers...)

	var profSched *scheduler.ProfilerScheduler
	if cfg.ProfilerInterval > 0 {
		profiler, _, err := newProfiler(cfg, db, appMetrics)
		if err != nil {
			return err
		}
		profSched, err = scheduler.NewProfilerScheduler(profiler, time.Duration(cfg.ProfilerInterval)*time.Second, logger.Named("scheduler"))
		if err != nil {
			return err
		}
		if err := profSched.Start(); err != nil {
			return err
		}
	}

	handler := httpapi.NewHookHandler(engine, notifRepo, logger.Named("http"))
	server := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewRouter(handler, registry))
	serverErr := make(chan error, 1)
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err = <-serverErr:
		mainLogger.WithError(err).Error("HTTP server failed")
	}

	mainLogger.Info("Shutting down application...")
	if profSched != nil {
		profSched.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		mainLogger.WithError(shutdownErr).Warn("HTTP server shutdown failed")
	}
	// Hooks have drained, flush what is left for the coach
	if relay != nil {
		relay.Stop()
	}
	if bot != nil {
		bot.Stop()
	}
	mainLogger.Info("Application shut down gracefully.")
	return err
}
