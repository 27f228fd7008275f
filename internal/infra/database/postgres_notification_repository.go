// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"progress_notifier/internal/domain/notification"
)

const notificationColumns = `id, user_id, classroom_id, notification_object, notification_event,
               lesson_id, contentnode_id, quiz_id, reason, timestamp`

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// filterClause turns the set fields of f into a WHERE clause and its arguments.
func filterClause(f notification.Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("user_id", f.UserID)
	add("notification_object", string(f.Object))
	add("notification_event", string(f.Event))
	add("lesson_id", f.LessonID)
	add("contentnode_id", f.ContentNodeID)
	add("quiz_id", f.QuizID)
	add("classroom_id", f.ClassroomID)
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresNotificationRepository) Exists(ctx context.Context, f notification.Filter) (bool, error) {
	where, args := filterClause(f)
	query := `SELECT EXISTS (SELECT 1 FROM learner_progress_notifications` + where + `)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking notification existence: %w", err)
	}
	return exists, nil
}

func (r *PostgresNotificationRepository) SaveAll(ctx context.Context, notifications []*notification.LearnerProgressNotification) ([]*notification.LearnerProgressNotification, error) {
	if len(notifications) == 0 {
		return nil, nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for notification batch: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO learner_progress_notifications (`+notificationColumns+`)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
               ON CONFLICT DO NOTHING
               RETURNING id`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement for notification batch: %w", err)
	}
	defer stmt.Close()

	inserted := make([]*notification.LearnerProgressNotification, 0, len(notifications))
	for _, n := range notifications {
		var id string
		err := stmt.QueryRowContext(ctx, n.ID, n.UserID, n.ClassroomID, n.Object, n.Event,
			n.LessonID, n.ContentNodeID, n.QuizID, n.Reason, n.Timestamp).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			continue // Conflict on the unique index, the row already exists
		}
		if err != nil {
			return nil, fmt.Errorf("error inserting notification (user %s, %s %s): %w", n.UserID, n.Object, n.Event, err)
		}
		inserted = append(inserted, n)
	}

	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit notification batch: %w", err)
	}
	return inserted, nil
}

func (r *PostgresNotificationRepository) ListRecent(ctx context.Context, classroomID string, limit int) ([]*notification.LearnerProgressNotification, error) {
	where, args := filterClause(notification.Filter{ClassroomID: classroomID})
	args = append(args, limit)
	query := `SELECT ` + notificationColumns + `
               FROM learner_progress_notifications` + where +
		fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d`, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing recent notifications: %w", err)
	}
	defer rows.Close()

	result := make([]*notification.LearnerProgressNotification, 0)
	for rows.Next() {
		n := &notification.LearnerProgressNotification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.ClassroomID, &n.Object, &n.Event,
			&n.LessonID, &n.ContentNodeID, &n.QuizID, &n.Reason, &n.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning notification row: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return result, nil
}
