package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"progress_notifier/internal/domain/lesson"

	"github.com/lib/pq" // For pq.Array
)

type PostgresLessonRepository struct {
	db *sql.DB
}

func NewPostgresLessonRepository(db *sql.DB) *PostgresLessonRepository {
	return &PostgresLessonRepository{db: db}
}

func (r *PostgresLessonRepository) ListActiveAssigned(ctx context.Context, collectionIDs []string, contentID string) ([]*lesson.Lesson, error) {
	if len(collectionIDs) == 0 {
		return []*lesson.Lesson{}, nil
	}

	query := `SELECT DISTINCT l.id, l.title, l.collection_id, l.is_active, l.resources
               FROM lessons l
               JOIN lesson_assignments la ON la.lesson_id = l.id
               WHERE la.collection_id = ANY($1::varchar[])
                 AND l.is_active = TRUE
                 AND l.resources @> jsonb_build_array(jsonb_build_object('content_id', $2::text))
               ORDER BY l.id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(collectionIDs), contentID)
	if err != nil {
		return nil, fmt.Errorf("error listing assigned lessons: %w", err)
	}
	defer rows.Close()

	lessons := make([]*lesson.Lesson, 0)
	for rows.Next() {
		l := &lesson.Lesson{}
		var resources []byte
		if err := rows.Scan(&l.ID, &l.Title, &l.CollectionID, &l.IsActive, &resources); err != nil {
			return nil, fmt.Errorf("error scanning lesson row: %w", err)
		}
		if len(resources) > 0 {
			if err := json.Unmarshal(resources, &l.Resources); err != nil {
				return nil, fmt.Errorf("error decoding resources of lesson %s: %w", l.ID, err)
			}
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lesson rows: %w", err)
	}
	return lessons, nil
}
