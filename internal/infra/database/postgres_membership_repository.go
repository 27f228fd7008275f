package database

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresMembershipRepository struct {
	db *sql.DB
}

func NewPostgresMembershipRepository(db *sql.DB) *PostgresMembershipRepository {
	return &PostgresMembershipRepository{db: db}
}

func (r *PostgresMembershipRepository) ListCollectionIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT collection_id FROM memberships WHERE user_id = $1 ORDER BY collection_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing memberships: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}
