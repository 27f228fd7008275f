package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"progress_notifier/internal/app"
	"progress_notifier/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	pollTimeout       = 10 * time.Second
	defaultRecentSize = 10
	maxRecentSize     = 50
)

// ParseRecentArgs reads the optional count argument of /recent.
func ParseRecentArgs(args []string) (int, error) {
	if len(args) == 0 {
		return defaultRecentSize, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("count must be a positive number, got %q", args[0])
	}
	if n > maxRecentSize {
		n = maxRecentSize
	}
	return n, nil
}

// RenderRecent formats a list of notifications as the /recent reply.
func RenderRecent(list []*notification.LearnerProgressNotification) string {
	if len(list) == 0 {
		return "No learner notifications yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("--- Latest %d notifications ---\n", len(list)))
	for _, n := range list {
		b.WriteString(n.Timestamp.Format("2006-01-02 15:04"))
		b.WriteString(" ")
		b.WriteString(app.FormatNotification(n))
		b.WriteString("\n")
	}
	return b.String()
}

// RegisterCoachHandlers registers the commands available to the coach chat.
func RegisterCoachHandlers(ctx context.Context, b *telebot.Bot, notifRepo notification.Repository, coachChatID int64, baseLogger *logrus.Entry) {
	authorized := func(c telebot.Context) bool {
		return c.Chat() != nil && c.Chat().ID == coachChatID
	}

	b.Handle("/start", func(c telebot.Context) error {
		logCtx := baseLogger.WithField("command", "/start").WithField("chat_id", c.Chat().ID)
		if !authorized(c) {
			logCtx.Warn("Unauthorized access attempt")
			return c.Send("This bot only reports to the configured coach chat.")
		}
		logCtx.Info("Coach chat connected")
		return c.Send("Hello! I will post learner progress notifications here. Use /help for commands.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		if !authorized(c) {
			return c.Send("No commands are available for you.")
		}
		var helpText strings.Builder
		helpText.WriteString("Available commands:\n\n")
		helpText.WriteString("`/recent [n]`\n - Show the latest n notifications (default 10, max 50).\n\n")
		helpText.WriteString("`/help`\n - Show this message.")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/recent", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler": "/recent",
			"chat_id": c.Chat().ID,
		})
		if !authorized(c) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Error: you are not allowed to run this command.")
		}

		limit, err := ParseRecentArgs(c.Args())
		if err != nil {
			handlerLogger.WithError(err).Warn("Invalid command format")
			return c.Send("Invalid format. Use: /recent [n]")
		}

		list, err := notifRepo.ListRecent(ctx, "", limit)
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to list recent notifications")
			return c.Send("An error occurred while loading notifications.")
		}
		handlerLogger.WithField("count", len(list)).Info("Recent notifications listed")
		return c.Send(RenderRecent(list))
	})
}
