package lesson

import (
	"context"
)

// Repository defines read access to lessons and their assignments.
type Repository interface {
	// ListActiveAssigned returns the distinct active lessons assigned to any of
	// collectionIDs whose resources reference contentID.
	ListActiveAssigned(ctx context.Context, collectionIDs []string, contentID string) ([]*Lesson, error)
}
