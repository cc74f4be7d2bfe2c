package eventstore

import (
	"context"
	"time"
)

// Store persists and retrieves run events.
type Store interface {
	// Append records e. The timestamp is taken from e when set.
	Append(ctx context.Context, e Event) error

	// GetByRunID retrieves every event of one run in append order.
	GetByRunID(ctx context.Context, runID string) ([]Event, error)

	// GetRange retrieves events within a time range.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// LatestRunID returns the run ID of the newest event for project, or "" if none.
	LatestRunID(ctx context.Context, project string) (string, error)

	Close() error
}
