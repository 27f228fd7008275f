package facility

import (
	"context"
)

// MembershipRepository lists the collections (classrooms and learner groups)
// a user belongs to.
type MembershipRepository interface {
	ListCollectionIDs(ctx context.Context, userID string) ([]string, error)
}
