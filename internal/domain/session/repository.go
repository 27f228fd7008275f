package session

import (
	"context"
	"time"
)

// Repository exposes the session counters the profiler reports.
type Repository interface {
	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
	// CountActiveSessions counts sessions (guest included) not yet expired at now.
	CountActiveSessions(ctx context.Context, now time.Time) (int, error)
	// CountActiveUsers counts logged users with an interaction at or after since.
	CountActiveUsers(ctx context.Context, since time.Time) (int, error)
}
