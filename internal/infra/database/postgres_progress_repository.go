package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"progress_notifier/internal/domain/progress"

	"github.com/lib/pq"
)

var ErrSummaryLogNotFound = fmt.Errorf("summary log not found for mastery log")

type PostgresProgressRepository struct {
	db *sql.DB
}

func NewPostgresProgressRepository(db *sql.DB) *PostgresProgressRepository {
	return &PostgresProgressRepository{db: db}
}

func (r *PostgresProgressRepository) CountCompleted(ctx context.Context, userID string, contentIDs []string) (int, error) {
	if len(contentIDs) == 0 {
		return 0, nil
	}
	query := `SELECT COUNT(*)
               FROM content_summary_logs
               WHERE user_id = $1
                 AND content_id = ANY($2::varchar[])
                 AND progress >= 1.0`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, pq.Array(contentIDs)).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting completed summary logs: %w", err)
	}
	return count, nil
}

func (r *PostgresProgressRepository) ListAttemptLogs(ctx context.Context, masteryLogID string) ([]*progress.AttemptLog, error) {
	query := `SELECT id, user_id, masterylog_id, item, correct, interaction_history
               FROM attempt_logs
               WHERE masterylog_id = $1
               ORDER BY start_timestamp`
	rows, err := r.db.QueryContext(ctx, query, masteryLogID)
	if err != nil {
		return nil, fmt.Errorf("error listing attempt logs: %w", err)
	}
	defer rows.Close()

	attempts := make([]*progress.AttemptLog, 0)
	for rows.Next() {
		a := &progress.AttemptLog{}
		var history []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.MasteryLogID, &a.ItemID, &a.Correct, &history); err != nil {
			return nil, fmt.Errorf("error scanning attempt log row: %w", err)
		}
		if len(history) > 0 {
			if err := json.Unmarshal(history, &a.InteractionHistory); err != nil {
				return nil, fmt.Errorf("error decoding interaction history of attempt %s: %w", a.ID, err)
			}
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempt log rows: %w", err)
	}
	return attempts, nil
}

func (r *PostgresProgressRepository) GetSummaryLogForMastery(ctx context.Context, masteryLogID string) (*progress.SummaryLog, error) {
	query := `SELECT s.id, s.user_id, s.content_id, s.channel_id, s.kind, s.progress
               FROM mastery_logs m
               JOIN content_summary_logs s ON s.id = m.summarylog_id
               WHERE m.id = $1`
	s := &progress.SummaryLog{}
	err := r.db.QueryRowContext(ctx, query, masteryLogID).Scan(&s.ID, &s.UserID, &s.ContentID, &s.ChannelID, &s.Kind, &s.Progress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSummaryLogNotFound
		}
		return nil, fmt.Errorf("error getting summary log for mastery log: %w", err)
	}
	return s, nil
}
