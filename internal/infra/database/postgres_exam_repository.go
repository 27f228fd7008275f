package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

type PostgresExamRepository struct {
	db *sql.DB
}

func NewPostgresExamRepository(db *sql.DB) *PostgresExamRepository {
	return &PostgresExamRepository{db: db}
}

func (r *PostgresExamRepository) ListAssignedCollections(ctx context.Context, examID string, collectionIDs []string) ([]string, error) {
	if len(collectionIDs) == 0 {
		return []string{}, nil
	}

	query := `SELECT DISTINCT collection_id
               FROM exam_assignments
               WHERE exam_id = $1 AND collection_id = ANY($2::varchar[])
               ORDER BY collection_id`
	rows, err := r.db.QueryContext(ctx, query, examID, pq.Array(collectionIDs))
	if err != nil {
		return nil, fmt.Errorf("error listing exam assignments: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// scanStrings collects a single text column.
func scanStrings(rows *sql.Rows) ([]string, error) {
	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return values, nil
}
