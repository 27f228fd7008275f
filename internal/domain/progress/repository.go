package progress

import (
	"context"
)

// Repository defines read access to learner progress records owned elsewhere.
type Repository interface {
	// CountCompleted counts the user's summary logs at full progress among contentIDs.
	CountCompleted(ctx context.Context, userID string, contentIDs []string) (int, error)
	// ListAttemptLogs returns every attempt log of a mastery log.
	ListAttemptLogs(ctx context.Context, masteryLogID string) ([]*AttemptLog, error)
	// GetSummaryLogForMastery returns the summary log a mastery log belongs to.
	GetSummaryLogForMastery(ctx context.Context, masteryLogID string) (*SummaryLog, error)
}
