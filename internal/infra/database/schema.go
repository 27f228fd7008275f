package database

import (
	"context"
	"database/sql"
	"fmt"
)

// notificationSchema creates the table this service owns. The unique index
// backs the insert-or-ignore in SaveAll; optional columns are stored as ''
// so the index treats them as values.
var notificationSchema = []string{
	`CREATE TABLE IF NOT EXISTS learner_progress_notifications (
		id                  UUID PRIMARY KEY,
		user_id             VARCHAR(64)  NOT NULL,
		classroom_id        VARCHAR(64)  NOT NULL,
		notification_object VARCHAR(200) NOT NULL,
		notification_event  VARCHAR(200) NOT NULL,
		lesson_id           VARCHAR(64)  NOT NULL DEFAULT '',
		contentnode_id      VARCHAR(64)  NOT NULL DEFAULT '',
		quiz_id             VARCHAR(64)  NOT NULL DEFAULT '',
		reason              VARCHAR(200) NOT NULL DEFAULT '',
		timestamp           TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS learner_progress_notification_unique
		ON learner_progress_notifications
		(user_id, notification_object, notification_event, lesson_id, contentnode_id, quiz_id, classroom_id)`,
	`CREATE INDEX IF NOT EXISTS learner_progress_notification_classroom_ts
		ON learner_progress_notifications (classroom_id, timestamp DESC)`,
}

// EnsureSchema creates the notification table and its indexes if missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range notificationSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error applying notification schema: %w", err)
		}
	}
	return nil
}
