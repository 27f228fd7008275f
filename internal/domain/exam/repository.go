package exam

import (
	"context"
)

// Repository defines read access to exam assignments.
type Repository interface {
	// ListAssignedCollections returns the distinct collection ids among
	// collectionIDs that the exam is assigned to.
	ListAssignedCollections(ctx context.Context, examID string, collectionIDs []string) ([]string, error)
}
