package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresSessionRepository reads the session tables of the web application.
type PostgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresSessionRepository) CountActiveSessions(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE expire_date >= $1`, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting active sessions: %w", err)
	}
	return count, nil
}

func (r *PostgresSessionRepository) CountActiveUsers(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_session_logs WHERE last_interaction_timestamp >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting active users: %w", err)
	}
	return count, nil
}
