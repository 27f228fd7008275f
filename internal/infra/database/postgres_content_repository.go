package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"progress_notifier/internal/domain/content"
)

var ErrContentNodeNotFound = fmt.Errorf("content node not found")

type PostgresContentRepository struct {
	db *sql.DB
}

func NewPostgresContentRepository(db *sql.DB) *PostgresContentRepository {
	return &PostgresContentRepository{db: db}
}

func (r *PostgresContentRepository) GetByID(ctx context.Context, id string) (*content.Node, error) {
	query := `SELECT id, content_id, channel_id, kind FROM content_nodes WHERE id = $1`
	n := &content.Node{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&n.ID, &n.ContentID, &n.ChannelID, &n.Kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContentNodeNotFound
		}
		return nil, fmt.Errorf("error getting content node by ID: %w", err)
	}
	return n, nil
}
